package healthcheck

import "strings"

const (
	defaultBaseURLConstant        = "https://api.drip.dev"
	defaultTimeoutSecondsConstant = 30
	defaultFormatConstant         = "pretty"
)

// CommandConfiguration describes the persisted settings for the check command.
type CommandConfiguration struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	MinimumAPIVersion string `mapstructure:"min_api_version"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	CustomerID        string `mapstructure:"customer_id"`
	SkipCleanup       bool   `mapstructure:"skip_cleanup"`
	RenderCheckout    bool   `mapstructure:"render_checkout"`
	Format            string `mapstructure:"format"`
	Verbose           bool   `mapstructure:"verbose"`
}

// DefaultCommandConfiguration supplies baseline values for the check command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		BaseURL:        defaultBaseURLConstant,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
		Format:         defaultFormatConstant,
	}
}

// Sanitize trims configured values and restores defaults for empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.APIKey = strings.TrimSpace(configuration.APIKey)
	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	sanitized.MinimumAPIVersion = strings.TrimSpace(configuration.MinimumAPIVersion)
	sanitized.CustomerID = strings.TrimSpace(configuration.CustomerID)
	sanitized.Format = strings.TrimSpace(configuration.Format)
	if len(sanitized.BaseURL) == 0 {
		sanitized.BaseURL = defaultBaseURLConstant
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsConstant
	}
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaultFormatConstant
	}
	return sanitized
}
