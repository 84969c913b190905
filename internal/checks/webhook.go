package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
	"github.com/tyemirov/dripcheck/internal/webhooksink"
)

const (
	webhookSignCheckNameConstant            = "webhook_sign"
	webhookSignCheckDescriptionConstant     = "A webhook endpoint can be registered and yields a signing secret"
	webhookVerifyCheckNameConstant          = "webhook_verify"
	webhookVerifyCheckDescriptionConstant   = "Signatures produced with the webhook secret verify locally"
	webhookDeliveryCheckNameConstant        = "webhook_delivery"
	webhookDeliveryCheckDescriptionConstant = "A test event is delivered to a local receiver with a valid signature"
	webhookListCheckNameConstant            = "webhook_list"
	webhookListCheckDescriptionConstant     = "Registered webhooks can be listed"
	webhookGetCheckNameConstant             = "webhook_get"
	webhookGetCheckDescriptionConstant      = "The registered webhook can be fetched by identifier"
	webhookRotateCheckNameConstant          = "webhook_rotate_secret"
	webhookRotateCheckDescriptionConstant   = "Rotating the webhook secret yields a fresh working secret"

	webhookCreateFailureTemplateConstant    = "Webhook registration failed: %v"
	webhookCreateSuggestionConstant         = "Verify the API key can manage webhooks."
	webhookSecretMissingMessageConstant     = "Webhook registration returned no signing secret"
	webhookContextMissingMessageConstant    = "No webhook secret available from webhook_sign"
	webhookContextMissingSuggestionConstant = "Run the full suite so webhook_sign executes first."
	webhookVerifyMismatchMessageConstant    = "Round-trip signature verification failed"
	webhookTamperAcceptedMessageConstant    = "Tampered payload passed signature verification"
	webhookTriggerFailureTemplateConstant   = "Test event trigger failed: %v"
	webhookDeliveryMissedTemplateConstant   = "No delivery received within %s: %v"
	webhookDeliverySuggestionConstant       = "Confirm the API host can reach this machine, or skip delivery checks behind NAT."
	webhookBadSignatureMessageConstant      = "Delivered event carried an invalid signature"
	webhookListFailureTemplateConstant      = "Webhook listing failed: %v"
	webhookListAbsentTemplateConstant       = "Webhook %s is missing from the listing"
	webhookGetFailureTemplateConstant       = "Webhook fetch failed: %v"
	webhookGetMismatchTemplateConstant      = "Webhook fetch returned %s instead of %s"
	webhookRotateFailureTemplateConstant    = "Secret rotation failed: %v"
	webhookRotateEmptyMessageConstant       = "Secret rotation returned no signing secret"
	webhookRotateUnchangedMessageConstant   = "Secret rotation returned the previous signing secret"
	webhookRotateBrokenMessageConstant      = "Signatures made with the rotated secret do not verify"

	webhookDeliveryWaitConstant    = 10 * time.Second
	webhookSamplePayloadConstant   = `{"type":"dripcheck.probe","data":{"ok":true}}`
	webhookRegisteredEventConstant = "charge.succeeded"
)

// WebhookSignCheck registers a webhook endpoint and records its identifier and
// signing secret for the verification checks.
func WebhookSignCheck(sinkURL string) healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookSignCheckNameConstant,
		Description: webhookSignCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			createdWebhook, createError := checkContext.Client.CreateWebhook(executionContext, drip.WebhookRequest{
				URL:         sinkURL,
				Events:      []string{webhookRegisteredEventConstant},
				Description: "dripcheck probe endpoint",
			})
			if createError != nil {
				return failedResult(fmt.Sprintf(webhookCreateFailureTemplateConstant, createError), webhookCreateSuggestionConstant)
			}
			if len(createdWebhook.Secret) == 0 {
				return failedResult(webhookSecretMissingMessageConstant, webhookCreateSuggestionConstant)
			}
			checkContext.SetValue(healthcheck.ContextKeyWebhookID, createdWebhook.ID)
			checkContext.SetValue(healthcheck.ContextKeyWebhookSecret, createdWebhook.Secret)
			return passedResult(fmt.Sprintf("Registered webhook %s", createdWebhook.ID))
		},
	}
}

// WebhookVerifyCheck exercises the HMAC signing scheme locally with the secret
// obtained by webhook_sign.
func WebhookVerifyCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookVerifyCheckNameConstant,
		Description: webhookVerifyCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			signingSecret, exists := checkContext.Value(healthcheck.ContextKeyWebhookSecret)
			if !exists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			samplePayload := []byte(webhookSamplePayloadConstant)
			computedSignature := drip.SignPayload(signingSecret, samplePayload)
			if !drip.VerifySignature(signingSecret, samplePayload, computedSignature) {
				return failedResult(webhookVerifyMismatchMessageConstant, webhookCreateSuggestionConstant)
			}
			if drip.VerifySignature(signingSecret, append(samplePayload, 'x'), computedSignature) {
				return failedResult(webhookTamperAcceptedMessageConstant, webhookCreateSuggestionConstant)
			}
			return passedResult("Signature round-trip verified")
		},
	}
}

// WebhookListCheck lists webhook endpoints and requires the one registered by
// webhook_sign to appear.
func WebhookListCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookListCheckNameConstant,
		Description: webhookListCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			webhookID, exists := checkContext.Value(healthcheck.ContextKeyWebhookID)
			if !exists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			listedWebhooks, listError := checkContext.Client.ListWebhooks(executionContext)
			if listError != nil {
				return failedResult(fmt.Sprintf(webhookListFailureTemplateConstant, listError), webhookCreateSuggestionConstant)
			}
			for _, listedWebhook := range listedWebhooks {
				if listedWebhook.ID == webhookID {
					return passedResult(fmt.Sprintf("Listed %d webhook(s) including %s", len(listedWebhooks), webhookID))
				}
			}
			return failedResult(fmt.Sprintf(webhookListAbsentTemplateConstant, webhookID), webhookCreateSuggestionConstant)
		},
	}
}

// WebhookGetCheck fetches the registered webhook by identifier.
func WebhookGetCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookGetCheckNameConstant,
		Description: webhookGetCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			webhookID, exists := checkContext.Value(healthcheck.ContextKeyWebhookID)
			if !exists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			fetchedWebhook, fetchError := checkContext.Client.GetWebhook(executionContext, webhookID)
			if fetchError != nil {
				return failedResult(fmt.Sprintf(webhookGetFailureTemplateConstant, fetchError), webhookCreateSuggestionConstant)
			}
			if fetchedWebhook.ID != webhookID {
				return failedResult(fmt.Sprintf(webhookGetMismatchTemplateConstant, fetchedWebhook.ID, webhookID), webhookCreateSuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Fetched webhook %s for %s", fetchedWebhook.ID, fetchedWebhook.URL))
		},
	}
}

// WebhookRotateSecretCheck rotates the webhook signing secret, requires a new
// secret to come back, and records it so later checks and cleanup use the
// current one. It runs after webhook_delivery so deliveries are verified
// against the original secret.
func WebhookRotateSecretCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookRotateCheckNameConstant,
		Description: webhookRotateCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			webhookID, exists := checkContext.Value(healthcheck.ContextKeyWebhookID)
			if !exists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			previousSecret, secretExists := checkContext.Value(healthcheck.ContextKeyWebhookSecret)
			if !secretExists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			rotatedWebhook, rotateError := checkContext.Client.RotateWebhookSecret(executionContext, webhookID)
			if rotateError != nil {
				return failedResult(fmt.Sprintf(webhookRotateFailureTemplateConstant, rotateError), webhookCreateSuggestionConstant)
			}
			if len(rotatedWebhook.Secret) == 0 {
				return failedResult(webhookRotateEmptyMessageConstant, webhookCreateSuggestionConstant)
			}
			if rotatedWebhook.Secret == previousSecret {
				return failedResult(webhookRotateUnchangedMessageConstant, webhookCreateSuggestionConstant)
			}
			samplePayload := []byte(webhookSamplePayloadConstant)
			if !drip.VerifySignature(rotatedWebhook.Secret, samplePayload, drip.SignPayload(rotatedWebhook.Secret, samplePayload)) {
				return failedResult(webhookRotateBrokenMessageConstant, webhookCreateSuggestionConstant)
			}
			checkContext.SetValue(healthcheck.ContextKeyWebhookSecret, rotatedWebhook.Secret)
			return passedResult(fmt.Sprintf("Rotated secret for webhook %s", webhookID))
		},
	}
}

// WebhookDeliveryCheck asks the API to fire a test event at the local sink and
// waits for a signed delivery to arrive. The delivered signature is verified
// with the secret recorded by webhook_sign.
func WebhookDeliveryCheck(sink *webhooksink.Sink) healthcheck.Check {
	return healthcheck.Check{
		Name:        webhookDeliveryCheckNameConstant,
		Description: webhookDeliveryCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			webhookID, exists := checkContext.Value(healthcheck.ContextKeyWebhookID)
			if !exists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			signingSecret, secretExists := checkContext.Value(healthcheck.ContextKeyWebhookSecret)
			if !secretExists {
				return failedResult(webhookContextMissingMessageConstant, webhookContextMissingSuggestionConstant)
			}
			if triggerError := checkContext.Client.TestWebhook(executionContext, webhookID); triggerError != nil {
				return failedResult(fmt.Sprintf(webhookTriggerFailureTemplateConstant, triggerError), webhookCreateSuggestionConstant)
			}
			capturedDelivery, waitError := sink.WaitForDelivery(executionContext, webhookDeliveryWaitConstant)
			if waitError != nil {
				return failedResult(
					fmt.Sprintf(webhookDeliveryMissedTemplateConstant, webhookDeliveryWaitConstant, waitError),
					webhookDeliverySuggestionConstant,
				)
			}
			if !drip.VerifySignature(signingSecret, capturedDelivery.Payload, capturedDelivery.Signature) {
				return failedResult(webhookBadSignatureMessageConstant, webhookDeliverySuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Received signed delivery of %d byte(s)", len(capturedDelivery.Payload)))
		},
	}
}
