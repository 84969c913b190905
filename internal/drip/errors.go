package drip

import (
	"fmt"
	"net/http"
)

const (
	// ErrorCodeUnauthorized marks a rejected API key.
	ErrorCodeUnauthorized = "UNAUTHORIZED"
	// ErrorCodeNotFound marks a missing resource.
	ErrorCodeNotFound = "NOT_FOUND"
	// ErrorCodeConflict marks a duplicate-resource rejection.
	ErrorCodeConflict = "CONFLICT"
	// ErrorCodeRateLimited marks backend rate limiting.
	ErrorCodeRateLimited = "RATE_LIMITED"
	// ErrorCodeServerError marks a 5xx backend failure.
	ErrorCodeServerError = "SERVER_ERROR"
	// ErrorCodeUnknown marks any other failure.
	ErrorCodeUnknown = "UNKNOWN"

	apiErrorTemplateConstant = "drip api error %d (%s): %s"
)

// APIError reports a non-success response from the Drip API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (errorDetails *APIError) Error() string {
	return fmt.Sprintf(apiErrorTemplateConstant, errorDetails.StatusCode, errorDetails.Code, errorDetails.Message)
}

// CodeForStatus maps an HTTP status code onto the machine error taxonomy used
// for failure histograms.
func CodeForStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorCodeUnauthorized
	case statusCode == http.StatusNotFound:
		return ErrorCodeNotFound
	case statusCode == http.StatusConflict:
		return ErrorCodeConflict
	case statusCode == http.StatusTooManyRequests:
		return ErrorCodeRateLimited
	case statusCode >= http.StatusInternalServerError:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}
