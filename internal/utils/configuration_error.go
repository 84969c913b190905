package utils

const configurationErrorPrefixConstant = "configuration error: "

// ConfigurationError marks a setup failure detected before any checks or load
// tasks ran. Callers map it onto a distinct process exit code so genuine
// misconfiguration is never hidden among per-check failures.
type ConfigurationError struct {
	Cause error
}

// NewConfigurationError wraps a setup failure.
func NewConfigurationError(cause error) *ConfigurationError {
	return &ConfigurationError{Cause: cause}
}

// Error implements the error interface.
func (errorDetails *ConfigurationError) Error() string {
	return configurationErrorPrefixConstant + errorDetails.Cause.Error()
}

// Unwrap exposes the underlying setup failure.
func (errorDetails *ConfigurationError) Unwrap() error {
	return errorDetails.Cause
}
