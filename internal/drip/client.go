package drip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const (
	apiKeyRequiredMessageConstant     = "drip api key must be provided"
	baseURLRequiredMessageConstant    = "drip base url must be provided"
	baseURLInvalidTemplateConstant    = "invalid drip base url %q"
	requestBuildMessageConstant       = "unable to build drip api request"
	requestSendMessageConstant        = "unable to reach drip api"
	responseReadMessageConstant       = "unable to read drip api response"
	responseDecodeMessageConstant     = "unable to decode drip api response"
	apiVersionPathSuffixConstant      = "/v1"
	authorizationHeaderNameConstant   = "Authorization"
	authorizationSchemeConstant       = "Bearer "
	contentTypeHeaderNameConstant     = "Content-Type"
	contentTypeJSONConstant           = "application/json"
	idempotencyKeyHeaderNameConstant  = "Idempotency-Key"
	replayHeaderNameConstant          = "Idempotent-Replayed"
	defaultRequestTimeoutConstant     = 30 * time.Second
	customersPathConstant             = "/customers"
	chargesPathConstant               = "/charges"
	checkoutSessionsPathConstant      = "/checkout/sessions"
	webhooksPathConstant              = "/webhooks"
	webhookTestPathTemplateConstant   = "/webhooks/%s/test"
	webhookRotatePathTemplateConstant = "/webhooks/%s/rotate-secret"
	healthPathConstant                = "/health"
	limitQueryParameterConstant       = "limit"
	customerQueryParameterConstant    = "customer_id"
)

// ErrAPIKeyRequired indicates the client was constructed without an API key.
var ErrAPIKeyRequired = pkgerrors.New(apiKeyRequiredMessageConstant)

// ErrBaseURLRequired indicates the client was constructed without a base URL.
var ErrBaseURLRequired = pkgerrors.New(baseURLRequiredMessageConstant)

// Customer is a billing account holder on the Drip backend.
type Customer struct {
	ID                 string            `json:"id"`
	ExternalCustomerID string            `json:"external_customer_id,omitempty"`
	OnchainAddress     string            `json:"onchain_address,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Charge is a metered usage charge.
type Charge struct {
	ID                    string  `json:"id"`
	CustomerID            string  `json:"customer_id"`
	Meter                 string  `json:"meter"`
	Quantity              int     `json:"quantity"`
	AmountUSDC            float64 `json:"amount_usdc,omitempty"`
	Status                string  `json:"status,omitempty"`
	SettlementTransaction string  `json:"settlement_tx,omitempty"`
}

// ChargeOutcome pairs a charge with the backend's idempotency replay marker.
type ChargeOutcome struct {
	Charge   Charge `json:"charge"`
	IsReplay bool   `json:"is_replay"`
}

// CheckoutSession is a hosted checkout page created for a customer.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Webhook is a registered event delivery endpoint.
type Webhook struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Events      []string `json:"events,omitempty"`
	Secret      string   `json:"secret,omitempty"`
	Description string   `json:"description,omitempty"`
}

// HealthStatus is the backend's health endpoint payload.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ChargeRequest describes a charge creation call.
type ChargeRequest struct {
	CustomerID     string            `json:"customer_id"`
	Meter          string            `json:"meter"`
	Quantity       int               `json:"quantity"`
	IdempotencyKey string            `json:"-"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CustomerRequest describes a customer creation call.
type CustomerRequest struct {
	OnchainAddress     string            `json:"onchain_address,omitempty"`
	ExternalCustomerID string            `json:"external_customer_id,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// CheckoutRequest describes a checkout session creation call.
type CheckoutRequest struct {
	CustomerID string `json:"customer_id"`
	AmountUSDC int    `json:"amount_usdc"`
	ReturnURL  string `json:"return_url,omitempty"`
}

// WebhookRequest describes a webhook registration call.
type WebhookRequest struct {
	URL         string   `json:"url"`
	Events      []string `json:"events,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ClientConfiguration carries the settings required to construct a Client.
type ClientConfiguration struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is a thin HTTP client for the Drip billing API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient validates the configuration and constructs a Client whose base URL
// always carries the /v1 version suffix.
func NewClient(configuration ClientConfiguration) (*Client, error) {
	trimmedAPIKey := strings.TrimSpace(configuration.APIKey)
	if len(trimmedAPIKey) == 0 {
		return nil, ErrAPIKeyRequired
	}

	trimmedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLRequired
	}
	if _, parseError := url.Parse(trimmedBaseURL); parseError != nil {
		return nil, pkgerrors.Wrapf(parseError, baseURLInvalidTemplateConstant, trimmedBaseURL)
	}

	requestTimeout := configuration.Timeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeoutConstant
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     trimmedAPIKey,
		baseURL:    NormalizeBaseURL(trimmedBaseURL),
	}, nil
}

// NormalizeBaseURL trims trailing slashes and ensures the /v1 suffix.
func NormalizeBaseURL(baseURL string) string {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(normalized, apiVersionPathSuffixConstant) {
		normalized += apiVersionPathSuffixConstant
	}
	return normalized
}

// Health fetches the backend health and version document.
func (client *Client) Health(executionContext context.Context) (HealthStatus, error) {
	var healthStatus HealthStatus
	if callError := client.call(executionContext, http.MethodGet, healthPathConstant, nil, "", &healthStatus); callError != nil {
		return HealthStatus{}, callError
	}
	return healthStatus, nil
}

// CreateCustomer registers a new customer.
func (client *Client) CreateCustomer(executionContext context.Context, request CustomerRequest) (Customer, error) {
	var createdCustomer Customer
	if callError := client.call(executionContext, http.MethodPost, customersPathConstant, request, "", &createdCustomer); callError != nil {
		return Customer{}, callError
	}
	return createdCustomer, nil
}

// GetCustomer fetches a customer by identifier.
func (client *Client) GetCustomer(executionContext context.Context, customerID string) (Customer, error) {
	var fetchedCustomer Customer
	if callError := client.call(executionContext, http.MethodGet, customersPathConstant+"/"+url.PathEscape(customerID), nil, "", &fetchedCustomer); callError != nil {
		return Customer{}, callError
	}
	return fetchedCustomer, nil
}

// ListCustomers fetches up to limit customers.
func (client *Client) ListCustomers(executionContext context.Context, limit int) ([]Customer, error) {
	var listPayload struct {
		Customers []Customer `json:"customers"`
	}
	requestPath := customersPathConstant + "?" + limitQueryParameterConstant + "=" + strconv.Itoa(limit)
	if callError := client.call(executionContext, http.MethodGet, requestPath, nil, "", &listPayload); callError != nil {
		return nil, callError
	}
	return listPayload.Customers, nil
}

// DeleteCustomer removes a customer by identifier.
func (client *Client) DeleteCustomer(executionContext context.Context, customerID string) error {
	return client.call(executionContext, http.MethodDelete, customersPathConstant+"/"+url.PathEscape(customerID), nil, "", nil)
}

// CreateCharge records a metered charge, deduplicated by the idempotency key.
func (client *Client) CreateCharge(executionContext context.Context, request ChargeRequest) (ChargeOutcome, error) {
	var chargeOutcome ChargeOutcome
	if callError := client.call(executionContext, http.MethodPost, chargesPathConstant, request, request.IdempotencyKey, &chargeOutcome); callError != nil {
		return ChargeOutcome{}, callError
	}
	return chargeOutcome, nil
}

// GetCharge fetches a charge by identifier.
func (client *Client) GetCharge(executionContext context.Context, chargeID string) (Charge, error) {
	var fetchedCharge Charge
	if callError := client.call(executionContext, http.MethodGet, chargesPathConstant+"/"+url.PathEscape(chargeID), nil, "", &fetchedCharge); callError != nil {
		return Charge{}, callError
	}
	return fetchedCharge, nil
}

// ListCharges fetches up to limit charges for the customer.
func (client *Client) ListCharges(executionContext context.Context, customerID string, limit int) ([]Charge, error) {
	var listPayload struct {
		Charges []Charge `json:"charges"`
	}
	queryValues := url.Values{}
	queryValues.Set(customerQueryParameterConstant, customerID)
	queryValues.Set(limitQueryParameterConstant, strconv.Itoa(limit))
	if callError := client.call(executionContext, http.MethodGet, chargesPathConstant+"?"+queryValues.Encode(), nil, "", &listPayload); callError != nil {
		return nil, callError
	}
	return listPayload.Charges, nil
}

// CreateCheckoutSession creates a hosted checkout session.
func (client *Client) CreateCheckoutSession(executionContext context.Context, request CheckoutRequest) (CheckoutSession, error) {
	var checkoutSession CheckoutSession
	if callError := client.call(executionContext, http.MethodPost, checkoutSessionsPathConstant, request, "", &checkoutSession); callError != nil {
		return CheckoutSession{}, callError
	}
	return checkoutSession, nil
}

// CreateWebhook registers an event delivery endpoint.
func (client *Client) CreateWebhook(executionContext context.Context, request WebhookRequest) (Webhook, error) {
	var createdWebhook Webhook
	if callError := client.call(executionContext, http.MethodPost, webhooksPathConstant, request, "", &createdWebhook); callError != nil {
		return Webhook{}, callError
	}
	return createdWebhook, nil
}

// ListWebhooks fetches every registered webhook.
func (client *Client) ListWebhooks(executionContext context.Context) ([]Webhook, error) {
	var listPayload struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	if callError := client.call(executionContext, http.MethodGet, webhooksPathConstant, nil, "", &listPayload); callError != nil {
		return nil, callError
	}
	return listPayload.Webhooks, nil
}

// GetWebhook fetches a webhook by identifier.
func (client *Client) GetWebhook(executionContext context.Context, webhookID string) (Webhook, error) {
	var fetchedWebhook Webhook
	if callError := client.call(executionContext, http.MethodGet, webhooksPathConstant+"/"+url.PathEscape(webhookID), nil, "", &fetchedWebhook); callError != nil {
		return Webhook{}, callError
	}
	return fetchedWebhook, nil
}

// TestWebhook asks the backend to fire a test delivery at the webhook endpoint.
func (client *Client) TestWebhook(executionContext context.Context, webhookID string) error {
	return client.call(executionContext, http.MethodPost, fmt.Sprintf(webhookTestPathTemplateConstant, url.PathEscape(webhookID)), nil, "", nil)
}

// RotateWebhookSecret replaces the webhook's signing secret.
func (client *Client) RotateWebhookSecret(executionContext context.Context, webhookID string) (Webhook, error) {
	var rotatedWebhook Webhook
	if callError := client.call(executionContext, http.MethodPost, fmt.Sprintf(webhookRotatePathTemplateConstant, url.PathEscape(webhookID)), nil, "", &rotatedWebhook); callError != nil {
		return Webhook{}, callError
	}
	return rotatedWebhook, nil
}

// DeleteWebhook removes a webhook by identifier.
func (client *Client) DeleteWebhook(executionContext context.Context, webhookID string) error {
	return client.call(executionContext, http.MethodDelete, webhooksPathConstant+"/"+url.PathEscape(webhookID), nil, "", nil)
}

func (client *Client) call(executionContext context.Context, method string, requestPath string, requestBody any, idempotencyKey string, responseTarget any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encodedBody, encodeError := json.Marshal(requestBody)
		if encodeError != nil {
			return pkgerrors.Wrap(encodeError, requestBuildMessageConstant)
		}
		bodyReader = bytes.NewReader(encodedBody)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, client.baseURL+requestPath, bodyReader)
	if requestError != nil {
		return pkgerrors.Wrap(requestError, requestBuildMessageConstant)
	}
	request.Header.Set(authorizationHeaderNameConstant, authorizationSchemeConstant+client.apiKey)
	if requestBody != nil {
		request.Header.Set(contentTypeHeaderNameConstant, contentTypeJSONConstant)
	}
	if len(idempotencyKey) > 0 {
		request.Header.Set(idempotencyKeyHeaderNameConstant, idempotencyKey)
	}

	response, sendError := client.httpClient.Do(request)
	if sendError != nil {
		return pkgerrors.Wrap(sendError, requestSendMessageConstant)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	responseContent, readError := io.ReadAll(response.Body)
	if readError != nil {
		return pkgerrors.Wrap(readError, responseReadMessageConstant)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: response.StatusCode,
			Code:       CodeForStatus(response.StatusCode),
			Message:    extractErrorMessage(responseContent),
		}
	}

	if responseTarget == nil || len(responseContent) == 0 {
		return nil
	}
	if decodeError := json.Unmarshal(responseContent, responseTarget); decodeError != nil {
		return pkgerrors.Wrap(decodeError, responseDecodeMessageConstant)
	}
	return nil
}

func extractErrorMessage(responseContent []byte) string {
	var errorPayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if decodeError := json.Unmarshal(responseContent, &errorPayload); decodeError == nil {
		if len(errorPayload.Error) > 0 {
			return errorPayload.Error
		}
		if len(errorPayload.Message) > 0 {
			return errorPayload.Message
		}
	}
	return strings.TrimSpace(string(responseContent))
}
