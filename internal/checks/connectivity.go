// Package checks defines the ordered health check suite run against a Drip
// billing API deployment.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
)

const (
	connectivityCheckNameConstant          = "connectivity"
	connectivityCheckDescriptionConstant   = "API endpoint responds to a health probe"
	authenticationCheckNameConstant        = "authentication"
	authenticationCheckDescriptionConstant = "API key is accepted by an authenticated endpoint"
	apiVersionCheckNameConstant            = "api_version"
	apiVersionCheckDescriptionConstant     = "API reports a supported version"

	connectivityFailureTemplateConstant   = "Health probe failed: %v"
	connectivitySuggestionConstant        = "Confirm the base URL is correct and the API is running."
	unhealthyStatusTemplateConstant       = "API reported status %q"
	authenticationFailureTemplateConstant = "Authenticated request rejected: %v"
	authenticationSuggestionConstant      = "Check that DRIP_API_KEY holds a valid key for this environment."
	versionMissingMessageConstant         = "API did not report a version"
	versionTooOldTemplateConstant         = "API version %s is older than required minimum %s"
	versionSuggestionConstant             = "Upgrade the API deployment or lower the configured minimum version."
	versionOKTemplateConstant             = "API version %s meets minimum %s"

	healthyStatusConstant = "ok"
)

// ConnectivityCheck probes the unauthenticated health endpoint.
func ConnectivityCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        connectivityCheckNameConstant,
		Description: connectivityCheckDescriptionConstant,
		Quick:       true,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			healthStatus, healthError := checkContext.Client.Health(executionContext)
			if healthError != nil {
				return failedResult(fmt.Sprintf(connectivityFailureTemplateConstant, healthError), connectivitySuggestionConstant)
			}
			if !strings.EqualFold(healthStatus.Status, healthyStatusConstant) && !strings.EqualFold(healthStatus.Status, "healthy") {
				return failedResult(fmt.Sprintf(unhealthyStatusTemplateConstant, healthStatus.Status), connectivitySuggestionConstant)
			}
			return passedResult(fmt.Sprintf("API reachable, status %q", healthStatus.Status))
		},
	}
}

// AuthenticationCheck confirms the configured key passes bearer auth.
func AuthenticationCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        authenticationCheckNameConstant,
		Description: authenticationCheckDescriptionConstant,
		Quick:       true,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			_, listError := checkContext.Client.ListCustomers(executionContext, 1)
			if listError != nil {
				var apiError *drip.APIError
				if errors.As(listError, &apiError) && apiError.Code == drip.ErrorCodeUnauthorized {
					return failedResult(fmt.Sprintf(authenticationFailureTemplateConstant, apiError), authenticationSuggestionConstant)
				}
				return failedResult(fmt.Sprintf(authenticationFailureTemplateConstant, listError), authenticationSuggestionConstant)
			}
			return passedResult("API key accepted")
		},
	}
}

// APIVersionCheck compares the reported version against the configured minimum.
func APIVersionCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        apiVersionCheckNameConstant,
		Description: apiVersionCheckDescriptionConstant,
		Quick:       true,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			healthStatus, healthError := checkContext.Client.Health(executionContext)
			if healthError != nil {
				return failedResult(fmt.Sprintf(connectivityFailureTemplateConstant, healthError), connectivitySuggestionConstant)
			}
			reportedVersion := canonicalVersion(healthStatus.Version)
			if len(reportedVersion) == 0 {
				return healthcheck.CheckResult{Success: true, Message: versionMissingMessageConstant, Details: "version comparison skipped"}
			}
			minimumVersion := canonicalVersion(checkContext.MinimumAPIVersion)
			if len(minimumVersion) > 0 && semver.Compare(reportedVersion, minimumVersion) < 0 {
				return failedResult(
					fmt.Sprintf(versionTooOldTemplateConstant, healthStatus.Version, checkContext.MinimumAPIVersion),
					versionSuggestionConstant,
				)
			}
			return passedResult(fmt.Sprintf(versionOKTemplateConstant, healthStatus.Version, checkContext.MinimumAPIVersion))
		},
	}
}

func canonicalVersion(rawVersion string) string {
	trimmedVersion := strings.TrimSpace(rawVersion)
	if len(trimmedVersion) == 0 {
		return ""
	}
	if !strings.HasPrefix(trimmedVersion, "v") {
		trimmedVersion = "v" + trimmedVersion
	}
	if !semver.IsValid(trimmedVersion) {
		return ""
	}
	return trimmedVersion
}

func passedResult(message string) healthcheck.CheckResult {
	return healthcheck.CheckResult{Success: true, Message: message}
}

func failedResult(message string, suggestion string) healthcheck.CheckResult {
	return healthcheck.CheckResult{Success: false, Message: message, Suggestion: suggestion}
}
