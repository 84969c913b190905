package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
)

const (
	checkoutCreateCheckNameConstant        = "checkout_create"
	checkoutCreateCheckDescriptionConstant = "A hosted checkout session can be created"
	checkoutRenderCheckNameConstant        = "checkout_render"
	checkoutRenderCheckDescriptionConstant = "The hosted checkout page renders in a headless browser"

	checkoutCreateFailureTemplateConstant    = "Checkout session creation failed: %v"
	checkoutCreateSuggestionConstant         = "Verify hosted checkout is enabled for this environment."
	checkoutURLMissingMessageConstant        = "Checkout session carries no URL"
	checkoutContextMissingMessageConstant    = "No checkout URL available from checkout_create"
	checkoutContextMissingSuggestionConstant = "Run the full suite so checkout_create executes first."
	checkoutRenderSkippedMessageConstant     = "Headless render disabled by configuration"
	checkoutRenderFailureTemplateConstant    = "Headless render failed: %v"
	checkoutRenderSuggestionConstant         = "Install a Chrome/Chromium binary or disable the render check."
	checkoutEmptyPageMessageConstant         = "Checkout page rendered an empty document"

	checkoutAmountUSDCConstant = 5
)

// CheckoutCreateCheck creates a hosted checkout session for the run's customer
// and records its URL.
func CheckoutCreateCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        checkoutCreateCheckNameConstant,
		Description: checkoutCreateCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			customerID := checkContext.CustomerID()
			if len(customerID) == 0 {
				return failedResult(customerMissingMessageConstant, customerMissingSuggestionConstant)
			}
			checkoutSession, createError := checkContext.Client.CreateCheckoutSession(executionContext, drip.CheckoutRequest{
				CustomerID: customerID,
				AmountUSDC: checkoutAmountUSDCConstant,
			})
			if createError != nil {
				return failedResult(fmt.Sprintf(checkoutCreateFailureTemplateConstant, createError), checkoutCreateSuggestionConstant)
			}
			if len(checkoutSession.URL) == 0 {
				return failedResult(checkoutURLMissingMessageConstant, checkoutCreateSuggestionConstant)
			}
			checkContext.SetValue(healthcheck.ContextKeyCheckoutURL, checkoutSession.URL)
			return passedResult(fmt.Sprintf("Created checkout session %s", checkoutSession.ID))
		},
	}
}

// CheckoutRenderCheck loads the hosted checkout page in a headless browser and
// requires a non-empty document body. The check passes trivially when headless
// rendering is disabled, so suites stay green on hosts without a browser.
func CheckoutRenderCheck() healthcheck.Check {
	return healthcheck.Check{
		Name:        checkoutRenderCheckNameConstant,
		Description: checkoutRenderCheckDescriptionConstant,
		Run: func(executionContext context.Context, checkContext *healthcheck.CheckContext) healthcheck.CheckResult {
			if !checkContext.RenderCheckout {
				return healthcheck.CheckResult{Success: true, Message: checkoutRenderSkippedMessageConstant}
			}
			checkoutURL, exists := checkContext.Value(healthcheck.ContextKeyCheckoutURL)
			if !exists {
				return failedResult(checkoutContextMissingMessageConstant, checkoutContextMissingSuggestionConstant)
			}

			allocatorContext, cancelAllocator := chromedp.NewExecAllocator(executionContext, chromedp.DefaultExecAllocatorOptions[:]...)
			defer cancelAllocator()
			browserContext, cancelBrowser := chromedp.NewContext(allocatorContext)
			defer cancelBrowser()

			var renderedBody string
			renderError := chromedp.Run(browserContext,
				chromedp.Navigate(checkoutURL),
				chromedp.Text("body", &renderedBody, chromedp.ByQuery),
			)
			if renderError != nil {
				return failedResult(fmt.Sprintf(checkoutRenderFailureTemplateConstant, renderError), checkoutRenderSuggestionConstant)
			}
			if len(strings.TrimSpace(renderedBody)) == 0 {
				return failedResult(checkoutEmptyPageMessageConstant, checkoutRenderSuggestionConstant)
			}
			return passedResult(fmt.Sprintf("Checkout page rendered %d character(s)", len(renderedBody)))
		},
	}
}
