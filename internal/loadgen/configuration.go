package loadgen

import "strings"

const (
	defaultLoadBaseURLConstant         = "https://api.drip.dev"
	defaultRequestsPerSecondConstant   = 10
	defaultLoadDurationSecondsConstant = 10
	defaultLoadConcurrencyConstant     = 10
	defaultLoadTotalRequestsConstant   = 100
	defaultLoadMeterConstant           = "api_calls"
	defaultLoadQuantityConstant        = 1
	defaultLoadTimeoutSecondsConstant  = 10
	defaultLoadFormatConstant          = "pretty"
	defaultLoadScenarioNameConstant    = "adhoc"
)

// CommandConfiguration describes the persisted settings for the loadtest command.
type CommandConfiguration struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	CustomerID        string `mapstructure:"customer_id"`
	RequestsPerSecond int    `mapstructure:"rps"`
	DurationSeconds   int    `mapstructure:"duration_seconds"`
	Concurrency       int    `mapstructure:"concurrency"`
	TotalRequests     int    `mapstructure:"requests"`
	Meter             string `mapstructure:"meter"`
	Quantity          int    `mapstructure:"quantity"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	ScenarioPath      string `mapstructure:"scenario"`
	Format            string `mapstructure:"format"`
}

// DefaultCommandConfiguration supplies baseline values for the loadtest command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		BaseURL:           defaultLoadBaseURLConstant,
		RequestsPerSecond: defaultRequestsPerSecondConstant,
		DurationSeconds:   defaultLoadDurationSecondsConstant,
		Concurrency:       defaultLoadConcurrencyConstant,
		TotalRequests:     defaultLoadTotalRequestsConstant,
		Meter:             defaultLoadMeterConstant,
		Quantity:          defaultLoadQuantityConstant,
		TimeoutSeconds:    defaultLoadTimeoutSecondsConstant,
		Format:            defaultLoadFormatConstant,
	}
}

// Sanitize trims configured values and restores defaults for empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.APIKey = strings.TrimSpace(configuration.APIKey)
	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	sanitized.CustomerID = strings.TrimSpace(configuration.CustomerID)
	sanitized.Meter = strings.TrimSpace(configuration.Meter)
	sanitized.ScenarioPath = strings.TrimSpace(configuration.ScenarioPath)
	sanitized.Format = strings.TrimSpace(configuration.Format)
	if len(sanitized.BaseURL) == 0 {
		sanitized.BaseURL = defaultLoadBaseURLConstant
	}
	if sanitized.RequestsPerSecond <= 0 {
		sanitized.RequestsPerSecond = defaultRequestsPerSecondConstant
	}
	if sanitized.DurationSeconds <= 0 {
		sanitized.DurationSeconds = defaultLoadDurationSecondsConstant
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaultLoadConcurrencyConstant
	}
	if sanitized.TotalRequests <= 0 {
		sanitized.TotalRequests = defaultLoadTotalRequestsConstant
	}
	if len(sanitized.Meter) == 0 {
		sanitized.Meter = defaultLoadMeterConstant
	}
	if sanitized.Quantity <= 0 {
		sanitized.Quantity = defaultLoadQuantityConstant
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultLoadTimeoutSecondsConstant
	}
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaultLoadFormatConstant
	}
	return sanitized
}
