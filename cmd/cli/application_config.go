package cli

import (
	_ "embed"
	"os"
	"strings"

	"github.com/tyemirov/dripcheck/internal/healthcheck"
	"github.com/tyemirov/dripcheck/internal/loadgen"
)

const (
	embeddedConfigurationTypeConstant  = "yaml"
	dripAPIKeyEnvironmentNameConstant  = "DRIP_API_KEY"
	dripBaseURLEnvironmentNameConstant = "DRIP_BASE_URL"
)

//go:embed config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the baked-in default configuration and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return embeddedDefaultConfiguration, embeddedConfigurationTypeConstant
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration   `mapstructure:"common"`
	Drip     ApplicationDripConfiguration     `mapstructure:"drip"`
	Check    healthcheck.CommandConfiguration `mapstructure:"check"`
	Loadtest loadgen.CommandConfiguration     `mapstructure:"loadtest"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationDripConfiguration stores API credentials shared by all commands.
type ApplicationDripConfiguration struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	MinimumAPIVersion string `mapstructure:"min_api_version"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
}

// ResolveCredentials returns the API key and base URL, falling back to the
// DRIP_API_KEY and DRIP_BASE_URL environment variables when unconfigured.
func (configuration ApplicationDripConfiguration) ResolveCredentials() (string, string) {
	apiKey := strings.TrimSpace(configuration.APIKey)
	if len(apiKey) == 0 {
		apiKey = strings.TrimSpace(os.Getenv(dripAPIKeyEnvironmentNameConstant))
	}
	baseURL := strings.TrimSpace(configuration.BaseURL)
	if len(baseURL) == 0 {
		baseURL = strings.TrimSpace(os.Getenv(dripBaseURLEnvironmentNameConstant))
	}
	return apiKey, baseURL
}
