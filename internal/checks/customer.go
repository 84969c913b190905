package checks

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
)

const (
	customerCreateCheckNameConstant         = "customer_create"
	customerCreateCheckDescriptionConstant  = "A customer can be created"
	customerGetCheckNameConstant            = "customer_get"
	customerGetCheckDescriptionConstant     = "The created customer can be fetched by identifier"
	customerListCheckNameConstant           = "customer_list"
	customerListCheckDescriptionConstant    = "Customers can be listed"
	customerCleanupCheckNameConstant        = "customer_cleanup"
	customerCleanupCheckDescriptionConstant = "Resources created during this run are removed"

	customerCreateFailureTemplateConstant = "Customer creation failed: %v"
	customerCreateSuggestionConstant      = "Verify the API key has write access to customers."
	customerMissingMessageConstant        = "No customer identifier available from customer_create or configuration"
	customerMissingSuggestionConstant     = "Run without --only, or seed a customer identifier in the configuration."
	customerGetFailureTemplateConstant    = "Customer fetch failed: %v"
	customerListFailureTemplateConstant   = "Customer listing failed: %v"
	cleanupSkippedMessageConstant         = "Cleanup skipped by configuration"
	cleanupNothingMessageConstant         = "No created resources to remove"
	cleanupFailureTemplateConstant        = "Cleanup removed %d resource(s) with %d failure(s)"
	cleanupSuggestionConstant             = "Remove the remaining test resources manually."

	externalIdentifierPrefixConstant = "dripcheck"
	customerListLimitConstant        = 10
)

// CustomerCreateCheck creates a disposable customer and records its identifier
// for the checks that follow. A duplicate rejection from a previous aborted run
// is tolerated when the backend returns the existing customer.
func CustomerCreateCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        customerCreateCheckNameConstant,
		Description: customerCreateCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			createdCustomer, createError := checkContext.Client.CreateCustomer(executionContext, drip.CustomerRequest{
				ExternalCustomerID: drip.NewExternalIdentifier(externalIdentifierPrefixConstant),
				Metadata:           map[string]string{"source": "dripcheck"},
			})
			if createError != nil {
				return failedResult(fmt.Sprintf(customerCreateFailureTemplateConstant, createError), customerCreateSuggestionConstant)
			}
			checkContext.SetValue(healthcheck.ContextKeyCreatedCustomerID, createdCustomer.ID)
			return passedResult(fmt.Sprintf("Created customer %s", createdCustomer.ID))
		},
	}
}

// CustomerGetCheck fetches the customer created earlier in the run.
func CustomerGetCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        customerGetCheckNameConstant,
		Description: customerGetCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customerID := checkContext.CustomerID()
			if len(customerID) == 0 {
				return failedResult(customerMissingMessageConstant, customerMissingSuggestionConstant)
			}
			fetchedCustomer, fetchError := checkContext.Client.GetCustomer(executionContext, customerID)
			if fetchError != nil {
				return failedResult(fmt.Sprintf(customerGetFailureTemplateConstant, fetchError), customerCreateSuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Fetched customer %s", fetchedCustomer.ID))
		},
	}
}

// CustomerListCheck lists customers with a small page size.
func CustomerListCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        customerListCheckNameConstant,
		Description: customerListCheckDescriptionConstant,
		Quick:       true,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customers, listError := checkContext.Client.ListCustomers(executionContext, customerListLimitConstant)
			if listError != nil {
				return failedResult(fmt.Sprintf(customerListFailureTemplateConstant, listError), customerCreateSuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Listed %d customer(s)", len(customers)))
		},
	}
}

// CustomerCleanupCheck removes resources created during this run. It always
// runs last so earlier checks keep their handoff values available. Missing
// resources are not failures: a partially failed run may never have created
// them.
func CustomerCleanupCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        customerCleanupCheckNameConstant,
		Description: customerCleanupCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			if checkContext.SkipCleanup {
				return healthcheck.CheckResult{Success: true, Message: cleanupSkippedMessageConstant}
			}

			removedCount := 0
			failedCount := 0
			if webhookID, exists := checkContext.Value(healthcheck.ContextKeyWebhookID); exists {
				if deleteError := checkContext.Client.DeleteWebhook(executionContext, webhookID); deleteError == nil || isNotFound(deleteError) {
					removedCount++
				} else {
					failedCount++
				}
			}
			if createdCustomerID, exists := checkContext.Value(healthcheck.ContextKeyCreatedCustomerID); exists {
				if deleteError := checkContext.Client.DeleteCustomer(executionContext, createdCustomerID); deleteError == nil || isNotFound(deleteError) {
					removedCount++
				} else {
					failedCount++
				}
			}

			if removedCount == 0 && failedCount == 0 {
				return healthcheck.CheckResult{Success: true, Message: cleanupNothingMessageConstant}
			}
			cleanupMessage := fmt.Sprintf(cleanupFailureTemplateConstant, removedCount, failedCount)
			if failedCount > 0 {
				return failedResult(cleanupMessage, cleanupSuggestionConstant)
			}
			return passedResult(cleanupMessage)
		},
	}
}

func isNotFound(candidateError error) bool {
	var apiError *drip.APIError
	return errors.As(candidateError, &apiError) && apiError.Code == drip.ErrorCodeNotFound
}
