package drip_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/drip"
)

const (
	clientSubtestNameTemplateConstant = "%d_%s"
	testAPIKeyConstant                = "sk_test_health"
)

func TestNormalizeBaseURL(testInstance *testing.T) {
	testCases := []struct {
		name        string
		baseURL     string
		expectedURL string
	}{
		{name: "bare_host_gains_suffix", baseURL: "https://api.drip.re", expectedURL: "https://api.drip.re/v1"},
		{name: "trailing_slash_removed", baseURL: "https://api.drip.re/", expectedURL: "https://api.drip.re/v1"},
		{name: "existing_suffix_preserved", baseURL: "https://api.drip.re/v1", expectedURL: "https://api.drip.re/v1"},
		{name: "surrounding_whitespace_trimmed", baseURL: "  https://api.drip.re  ", expectedURL: "https://api.drip.re/v1"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(clientSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedURL, drip.NormalizeBaseURL(testCase.baseURL))
		})
	}
}

func TestNewClientValidatesConfiguration(testInstance *testing.T) {
	_, missingKeyError := drip.NewClient(drip.ClientConfiguration{BaseURL: "https://api.drip.re"})
	require.ErrorIs(testInstance, missingKeyError, drip.ErrAPIKeyRequired)

	_, missingURLError := drip.NewClient(drip.ClientConfiguration{APIKey: testAPIKeyConstant})
	require.ErrorIs(testInstance, missingURLError, drip.ErrBaseURLRequired)
}

func TestClientCreateChargeSendsIdempotencyKey(testInstance *testing.T) {
	var observedAuthorization string
	var observedIdempotencyKey string
	var observedPath string

	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		observedAuthorization = request.Header.Get("Authorization")
		observedIdempotencyKey = request.Header.Get("Idempotency-Key")
		observedPath = request.URL.Path

		responseWriter.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(responseWriter).Encode(drip.ChargeOutcome{
			Charge:   drip.Charge{ID: "chg_123", CustomerID: "cus_1", Meter: "api_calls", Quantity: 1},
			IsReplay: false,
		})
	}))
	defer testServer.Close()

	client, clientError := drip.NewClient(drip.ClientConfiguration{APIKey: testAPIKeyConstant, BaseURL: testServer.URL, Timeout: 5 * time.Second})
	require.NoError(testInstance, clientError)

	chargeOutcome, chargeError := client.CreateCharge(context.Background(), drip.ChargeRequest{
		CustomerID:     "cus_1",
		Meter:          "api_calls",
		Quantity:       1,
		IdempotencyKey: "idem_test_abc",
	})
	require.NoError(testInstance, chargeError)
	require.Equal(testInstance, "chg_123", chargeOutcome.Charge.ID)
	require.False(testInstance, chargeOutcome.IsReplay)

	require.Equal(testInstance, "Bearer "+testAPIKeyConstant, observedAuthorization)
	require.Equal(testInstance, "idem_test_abc", observedIdempotencyKey)
	require.Equal(testInstance, "/v1/charges", observedPath)
}

func TestClientMapsErrorStatuses(testInstance *testing.T) {
	testCases := []struct {
		name         string
		statusCode   int
		expectedCode string
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, expectedCode: drip.ErrorCodeUnauthorized},
		{name: "forbidden", statusCode: http.StatusForbidden, expectedCode: drip.ErrorCodeUnauthorized},
		{name: "not_found", statusCode: http.StatusNotFound, expectedCode: drip.ErrorCodeNotFound},
		{name: "conflict", statusCode: http.StatusConflict, expectedCode: drip.ErrorCodeConflict},
		{name: "rate_limited", statusCode: http.StatusTooManyRequests, expectedCode: drip.ErrorCodeRateLimited},
		{name: "server_error", statusCode: http.StatusInternalServerError, expectedCode: drip.ErrorCodeServerError},
		{name: "teapot_is_unknown", statusCode: http.StatusTeapot, expectedCode: drip.ErrorCodeUnknown},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(clientSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
				responseWriter.Header().Set("Content-Type", "application/json")
				responseWriter.WriteHeader(testCase.statusCode)
				_, _ = responseWriter.Write([]byte(`{"error":"request rejected"}`))
			}))
			defer testServer.Close()

			client, clientError := drip.NewClient(drip.ClientConfiguration{APIKey: testAPIKeyConstant, BaseURL: testServer.URL})
			require.NoError(testInstance, clientError)

			_, healthError := client.Health(context.Background())
			require.Error(testInstance, healthError)

			var apiError *drip.APIError
			require.ErrorAs(testInstance, healthError, &apiError)
			require.Equal(testInstance, testCase.statusCode, apiError.StatusCode)
			require.Equal(testInstance, testCase.expectedCode, apiError.Code)
			require.Equal(testInstance, "request rejected", apiError.Message)
		})
	}
}

func TestClientListCustomersDecodesEnvelope(testInstance *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "1", request.URL.Query().Get("limit"))
		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = responseWriter.Write([]byte(`{"customers":[{"id":"cus_1"},{"id":"cus_2"}]}`))
	}))
	defer testServer.Close()

	client, clientError := drip.NewClient(drip.ClientConfiguration{APIKey: testAPIKeyConstant, BaseURL: testServer.URL})
	require.NoError(testInstance, clientError)

	customers, listError := client.ListCustomers(context.Background(), 1)
	require.NoError(testInstance, listError)
	require.Len(testInstance, customers, 2)
	require.Equal(testInstance, "cus_1", customers[0].ID)
}
