package healthcheck

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tyemirov/dripcheck/internal/drip"
)

// Context value keys written by earlier checks and read by later ones. The
// runner executes checks strictly in declared order because of these handoffs.
const (
	// ContextKeyCreatedCustomerID is written by customer_create.
	ContextKeyCreatedCustomerID = "created_customer_id"
	// ContextKeyCreatedChargeID is written by charge_create.
	ContextKeyCreatedChargeID = "created_charge_id"
	// ContextKeyWebhookID is written by webhook_sign.
	ContextKeyWebhookID = "webhook_id"
	// ContextKeyWebhookSecret is written by webhook_sign.
	ContextKeyWebhookSecret = "webhook_secret"
	// ContextKeyCheckoutURL is written by checkout_create.
	ContextKeyCheckoutURL = "checkout_url"

	defaultCheckTimeoutConstant = 30 * time.Second
)

// CheckResult is the immutable outcome of one check invocation.
type CheckResult struct {
	Name                 string
	Success              bool
	DurationMilliseconds float64
	Message              string
	Details              string
	Suggestion           string
}

// CheckFunction executes one check against the shared context. Failures must be
// encoded into the returned CheckResult; the runner recovers panics.
type CheckFunction func(executionContext context.Context, checkContext *CheckContext) CheckResult

// Check is a named, independent verification unit.
type Check struct {
	Name        string
	Description string
	Quick       bool
	Run         CheckFunction
}

// CheckContext is the mutable state shared across one run of checks. A check
// abandoned after timing out may still write values concurrently with a later
// check, so the value store is mutex-guarded.
type CheckContext struct {
	Client            *drip.Client
	APIKey            string
	BaseURL           string
	SeededCustomerID  string
	SkipCleanup       bool
	Timeout           time.Duration
	MinimumAPIVersion string
	RenderCheckout    bool

	valueMutex sync.Mutex
	values     map[string]string
}

// SetValue stores a cross-check handoff value under one of the documented keys.
func (checkContext *CheckContext) SetValue(key string, value string) {
	checkContext.valueMutex.Lock()
	defer checkContext.valueMutex.Unlock()
	if checkContext.values == nil {
		checkContext.values = map[string]string{}
	}
	checkContext.values[key] = value
}

// Value returns the stored handoff value and whether it was present.
func (checkContext *CheckContext) Value(key string) (string, bool) {
	checkContext.valueMutex.Lock()
	defer checkContext.valueMutex.Unlock()
	storedValue, exists := checkContext.values[key]
	return storedValue, exists
}

// CustomerID returns the customer created during this run, falling back to the
// seeded customer configured by the operator.
func (checkContext *CheckContext) CustomerID() string {
	if createdCustomerID, exists := checkContext.Value(ContextKeyCreatedCustomerID); exists && len(strings.TrimSpace(createdCustomerID)) > 0 {
		return createdCustomerID
	}
	return checkContext.SeededCustomerID
}

// CheckTimeout returns the configured per-check timeout or the default.
func (checkContext *CheckContext) CheckTimeout() time.Duration {
	if checkContext.Timeout > 0 {
		return checkContext.Timeout
	}
	return defaultCheckTimeoutConstant
}
