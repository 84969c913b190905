package webhooksink_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/webhooksink"
)

const testSigningSecretConstant = "whsec_sink_test"

func postDelivery(testInstance *testing.T, sinkURL string, payload []byte, signature string) {
	testInstance.Helper()
	deliveryRequest, requestError := http.NewRequest(http.MethodPost, sinkURL, bytes.NewReader(payload))
	require.NoError(testInstance, requestError)
	deliveryRequest.Header.Set("Drip-Signature", signature)

	deliveryResponse, sendError := http.DefaultClient.Do(deliveryRequest)
	require.NoError(testInstance, sendError)
	require.NoError(testInstance, deliveryResponse.Body.Close())
	require.Equal(testInstance, http.StatusOK, deliveryResponse.StatusCode)
}

func TestSinkCapturesDeliveryWithSignature(t *testing.T) {
	sinkInstance, startError := webhooksink.Start()
	require.NoError(t, startError)
	defer func() {
		require.NoError(t, sinkInstance.Close())
	}()

	payloadBytes := []byte(`{"type":"charge.succeeded","id":"evt_1"}`)
	computedSignature := drip.SignPayload(testSigningSecretConstant, payloadBytes)
	postDelivery(t, sinkInstance.URL(), payloadBytes, computedSignature)

	capturedDelivery, waitError := sinkInstance.WaitForDelivery(context.Background(), time.Second)
	require.NoError(t, waitError)
	require.Equal(t, payloadBytes, capturedDelivery.Payload)
	require.Equal(t, computedSignature, capturedDelivery.Signature)
	require.True(t, drip.VerifySignature(testSigningSecretConstant, capturedDelivery.Payload, capturedDelivery.Signature))
}

func TestSinkReturnsFirstDelivery(t *testing.T) {
	sinkInstance, startError := webhooksink.Start()
	require.NoError(t, startError)
	defer func() {
		require.NoError(t, sinkInstance.Close())
	}()

	postDelivery(t, sinkInstance.URL(), []byte(`{"seq":1}`), "sig-1")
	postDelivery(t, sinkInstance.URL(), []byte(`{"seq":2}`), "sig-2")

	capturedDelivery, waitError := sinkInstance.WaitForDelivery(context.Background(), time.Second)
	require.NoError(t, waitError)
	require.Equal(t, []byte(`{"seq":1}`), capturedDelivery.Payload)
	require.Len(t, sinkInstance.Deliveries(), 2)
}

func TestSinkWaitTimesOutWithoutDelivery(t *testing.T) {
	sinkInstance, startError := webhooksink.Start()
	require.NoError(t, startError)
	defer func() {
		require.NoError(t, sinkInstance.Close())
	}()

	_, waitError := sinkInstance.WaitForDelivery(context.Background(), 50*time.Millisecond)
	require.ErrorIs(t, waitError, webhooksink.ErrNoDelivery)
}
