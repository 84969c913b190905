package loadgen

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/metrics"
)

const (
	loadIdempotencyPrefixConstant = "loadtest"
	loadCustomerPrefixConstant    = "loadtest"
	customerCleanupGraceConstant  = 5 * time.Second
)

// newChargeTask returns a load task that issues one charge with a fresh
// idempotency key and encodes every failure into the TaskResult.
func newChargeTask(dripClient *drip.Client, customerID string, meter string, quantity int) Task {
	return func(executionContext context.Context) metrics.TaskResult {
		taskStart := time.Now()
		_, chargeError := dripClient.CreateCharge(executionContext, drip.ChargeRequest{
			CustomerID:     customerID,
			Meter:          meter,
			Quantity:       quantity,
			IdempotencyKey: drip.NewIdempotencyKey(loadIdempotencyPrefixConstant),
		})
		elapsedMilliseconds := float64(time.Since(taskStart)) / float64(time.Millisecond)
		if chargeError != nil {
			return metrics.TaskResult{
				Success:              false,
				DurationMilliseconds: elapsedMilliseconds,
				ErrorMessage:         chargeError.Error(),
				ErrorCode:            classifyTaskError(chargeError),
			}
		}
		return metrics.TaskResult{Success: true, DurationMilliseconds: elapsedMilliseconds}
	}
}

func classifyTaskError(taskError error) string {
	var apiError *drip.APIError
	if errors.As(taskError, &apiError) {
		return apiError.Code
	}
	if errors.Is(taskError, context.DeadlineExceeded) {
		return metrics.ErrorCodeTimeout
	}
	return metrics.ErrorCodeUnknown
}

// ensureLoadCustomer returns the customer to bill against, creating a
// disposable one when none is configured. The returned cleanup removes the
// created customer and is a no-op for pre-existing customers.
func ensureLoadCustomer(executionContext context.Context, dripClient *drip.Client, configuredCustomerID string) (string, func(), error) {
	if len(configuredCustomerID) > 0 {
		return configuredCustomerID, func() {}, nil
	}

	createdCustomer, createError := dripClient.CreateCustomer(executionContext, drip.CustomerRequest{
		ExternalCustomerID: drip.NewExternalIdentifier(loadCustomerPrefixConstant),
		Metadata:           map[string]string{"source": "dripcheck-loadtest"},
	})
	if createError != nil {
		return "", nil, pkgerrors.Wrap(createError, customerSetupErrorMessageConstant)
	}

	cleanup := func() {
		cleanupContext, cancelCleanup := context.WithTimeout(context.Background(), customerCleanupGraceConstant)
		defer cancelCleanup()
		_ = dripClient.DeleteCustomer(cleanupContext, createdCustomer.ID)
	}
	return createdCustomer.ID, cleanup, nil
}
