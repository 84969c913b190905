package checks

import (
	"strings"

	"github.com/tyemirov/dripcheck/internal/healthcheck"
	"github.com/tyemirov/dripcheck/internal/webhooksink"
)

const placeholderWebhookURLConstant = "https://dripcheck.invalid/webhook"

// SuiteOptions shape the assembled check suite.
type SuiteOptions struct {
	// Sink receives webhook deliveries. When nil the delivery check is
	// omitted and webhook registration uses a placeholder URL.
	Sink *webhooksink.Sink
}

// Suite returns the full check suite in execution order. Order matters:
// later checks consume identifiers recorded by earlier ones, and cleanup runs
// last so every produced resource is still known when it executes.
func Suite(options SuiteOptions) []healthcheck.Check {
	webhookURL := placeholderWebhookURLConstant
	if options.Sink != nil {
		webhookURL = options.Sink.URL()
	}

	suite := []healthcheck.Check{
		ConnectivityCheck(),
		AuthenticationCheck(),
		APIVersionCheck(),
		CustomerCreateCheck(),
		CustomerGetCheck(),
		CustomerListCheck(),
		ChargeCreateCheck(),
		ChargeStatusCheck(),
		ChargeListCheck(),
		IdempotencyCheck(),
		WebhookSignCheck(webhookURL),
		WebhookVerifyCheck(),
		WebhookListCheck(),
		WebhookGetCheck(),
	}
	if options.Sink != nil {
		suite = append(suite, WebhookDeliveryCheck(options.Sink))
	}
	suite = append(suite,
		WebhookRotateSecretCheck(),
		CheckoutCreateCheck(),
		CheckoutRenderCheck(),
		CustomerCleanupCheck(),
	)
	return suite
}

// Filter narrows a suite to checks whose names match any of the provided
// case-insensitive substrings, optionally keeping only quick checks. Cleanup
// is always retained last when any resource-producing check survives the
// filter, because selected checks may still create resources.
func Filter(suite []healthcheck.Check, namePatterns []string, quickOnly bool) []healthcheck.Check {
	filteredSuite := make([]healthcheck.Check, 0, len(suite))
	var cleanupCheck *healthcheck.Check
	for checkIndex := range suite {
		currentCheck := suite[checkIndex]
		if currentCheck.Name == customerCleanupCheckNameConstant {
			cleanupCheck = &suite[checkIndex]
			continue
		}
		if quickOnly && !currentCheck.Quick {
			continue
		}
		if !matchesAnyPattern(currentCheck.Name, namePatterns) {
			continue
		}
		filteredSuite = append(filteredSuite, currentCheck)
	}
	if cleanupCheck != nil && shouldIncludeCleanup(filteredSuite, namePatterns, quickOnly) {
		filteredSuite = append(filteredSuite, *cleanupCheck)
	}
	return filteredSuite
}

func matchesAnyPattern(checkName string, namePatterns []string) bool {
	if len(namePatterns) == 0 {
		return true
	}
	loweredName := strings.ToLower(checkName)
	for _, pattern := range namePatterns {
		if strings.Contains(loweredName, strings.ToLower(strings.TrimSpace(pattern))) {
			return true
		}
	}
	return false
}

func shouldIncludeCleanup(filteredSuite []healthcheck.Check, namePatterns []string, quickOnly bool) bool {
	if matchesAnyPattern(customerCleanupCheckNameConstant, namePatterns) && !quickOnly {
		return true
	}
	for _, selectedCheck := range filteredSuite {
		if selectedCheck.Name == customerCreateCheckNameConstant ||
			selectedCheck.Name == webhookSignCheckNameConstant {
			return true
		}
	}
	return false
}
