package checks

import (
	"context"
	"fmt"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
)

const (
	chargeCreateCheckNameConstant        = "charge_create"
	chargeCreateCheckDescriptionConstant = "A usage charge can be created"
	chargeStatusCheckNameConstant        = "charge_status"
	chargeStatusCheckDescriptionConstant = "The created charge can be fetched and carries a status"
	chargeListCheckNameConstant          = "charge_list"
	chargeListCheckDescriptionConstant   = "Charges for the run's customer can be listed"
	idempotencyCheckNameConstant         = "idempotency"
	idempotencyCheckDescriptionConstant  = "Replaying an idempotency key returns the original charge"

	chargeCreateFailureTemplateConstant = "Charge creation failed: %v"
	chargeCreateSuggestionConstant      = "Verify the meter exists and the API key has billing access."
	chargeMissingMessageConstant        = "No charge identifier available from charge_create"
	chargeMissingSuggestionConstant     = "Run the full suite so charge_create executes first."
	chargeStatusFailureTemplateConstant = "Charge fetch failed: %v"
	chargeStatusEmptyMessageConstant    = "Charge carries no status field"
	chargeListFailureTemplateConstant   = "Charge listing failed: %v"
	chargeListAbsentTemplateConstant    = "Charge %s is missing from the customer's charge listing"
	idempotencyFailureTemplateConstant  = "Idempotent replay failed: %v"
	idempotencyMismatchTemplateConstant = "Replay returned charge %s instead of original %s"
	idempotencyNotReplayMessageConstant = "Replay was billed as a new charge instead of being deduplicated"
	idempotencySuggestionConstant       = "Verify Idempotency-Key handling on the charges endpoint."

	checkMeterConstant           = "api_calls"
	checkChargeQuantityConstant  = 1
	idempotencyKeyPrefixConstant = "dripcheck"
	chargeListLimitConstant      = 10
)

// ChargeCreateCheck bills one unit against the run's customer and records the
// charge identifier for later checks.
func ChargeCreateCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        chargeCreateCheckNameConstant,
		Description: chargeCreateCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customerID := checkContext.CustomerID()
			if len(customerID) == 0 {
				return failedResult(customerMissingMessageConstant, customerMissingSuggestionConstant)
			}
			chargeOutcome, chargeError := checkContext.Client.CreateCharge(executionContext, drip.ChargeRequest{
				CustomerID:     customerID,
				Meter:          checkMeterConstant,
				Quantity:       checkChargeQuantityConstant,
				IdempotencyKey: drip.NewIdempotencyKey(idempotencyKeyPrefixConstant),
			})
			if chargeError != nil {
				return failedResult(fmt.Sprintf(chargeCreateFailureTemplateConstant, chargeError), chargeCreateSuggestionConstant)
			}
			checkContext.SetValue(healthcheck.ContextKeyCreatedChargeID, chargeOutcome.Charge.ID)
			return passedResult(fmt.Sprintf("Created charge %s", chargeOutcome.Charge.ID))
		},
	}
}

// ChargeStatusCheck fetches the charge created earlier and inspects its status.
func ChargeStatusCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        chargeStatusCheckNameConstant,
		Description: chargeStatusCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			chargeID, exists := checkContext.Value(healthcheck.ContextKeyCreatedChargeID)
			if !exists {
				return failedResult(chargeMissingMessageConstant, chargeMissingSuggestionConstant)
			}
			fetchedCharge, fetchError := checkContext.Client.GetCharge(executionContext, chargeID)
			if fetchError != nil {
				return failedResult(fmt.Sprintf(chargeStatusFailureTemplateConstant, fetchError), chargeCreateSuggestionConstant)
			}
			if len(fetchedCharge.Status) == 0 {
				return failedResult(chargeStatusEmptyMessageConstant, chargeCreateSuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Charge %s has status %q", fetchedCharge.ID, fetchedCharge.Status))
		},
	}
}

// ChargeListCheck lists charges for the run's customer and requires the charge
// created earlier to appear in the listing.
func ChargeListCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        chargeListCheckNameConstant,
		Description: chargeListCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customerID := checkContext.CustomerID()
			if len(customerID) == 0 {
				return failedResult(customerMissingMessageConstant, customerMissingSuggestionConstant)
			}
			listedCharges, listError := checkContext.Client.ListCharges(executionContext, customerID, chargeListLimitConstant)
			if listError != nil {
				return failedResult(fmt.Sprintf(chargeListFailureTemplateConstant, listError), chargeCreateSuggestionConstant)
			}
			if createdChargeID, exists := checkContext.Value(healthcheck.ContextKeyCreatedChargeID); exists {
				found := false
				for _, listedCharge := range listedCharges {
					if listedCharge.ID == createdChargeID {
						found = true
						break
					}
				}
				if !found {
					return failedResult(fmt.Sprintf(chargeListAbsentTemplateConstant, createdChargeID), chargeCreateSuggestionConstant)
				}
			}
			return passedResult(fmt.Sprintf("Listed %d charge(s) for customer %s", len(listedCharges), customerID))
		},
	}
}

// IdempotencyCheck submits the same charge twice under one idempotency key and
// requires the second submission to replay the first charge.
func IdempotencyCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        idempotencyCheckNameConstant,
		Description: idempotencyCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customerID := checkContext.CustomerID()
			if len(customerID) == 0 {
				return failedResult(customerMissingMessageConstant, customerMissingSuggestionConstant)
			}
			chargeRequest := drip.ChargeRequest{
				CustomerID:     customerID,
				Meter:          checkMeterConstant,
				Quantity:       checkChargeQuantityConstant,
				IdempotencyKey: drip.NewIdempotencyKey(idempotencyKeyPrefixConstant),
			}
			firstOutcome, firstError := checkContext.Client.CreateCharge(executionContext, chargeRequest)
			if firstError != nil {
				return failedResult(fmt.Sprintf(idempotencyFailureTemplateConstant, firstError), idempotencySuggestionConstant)
			}
			secondOutcome, secondError := checkContext.Client.CreateCharge(executionContext, chargeRequest)
			if secondError != nil {
				return failedResult(fmt.Sprintf(idempotencyFailureTemplateConstant, secondError), idempotencySuggestionConstant)
			}
			if secondOutcome.Charge.ID != firstOutcome.Charge.ID {
				return failedResult(
					fmt.Sprintf(idempotencyMismatchTemplateConstant, secondOutcome.Charge.ID, firstOutcome.Charge.ID),
					idempotencySuggestionConstant,
				)
			}
			if !secondOutcome.IsReplay {
				return failedResult(idempotencyNotReplayMessageConstant, idempotencySuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Replay returned original charge %s", firstOutcome.Charge.ID))
		},
	}
}
