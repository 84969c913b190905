package drip_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/drip"
)

func TestSignAndVerifyPayload(testInstance *testing.T) {
	payload := []byte(`{"event":"charge.succeeded","data":{}}`)
	signature := drip.SignPayload("whsec_test", payload)

	require.NotEmpty(testInstance, signature)
	require.True(testInstance, drip.VerifySignature("whsec_test", payload, signature))
	require.False(testInstance, drip.VerifySignature("whsec_other", payload, signature))
	require.False(testInstance, drip.VerifySignature("whsec_test", []byte(`{"event":"tampered"}`), signature))
}

func TestIdentifierGeneratorsProduceUniquePrefixedValues(testInstance *testing.T) {
	firstKey := drip.NewIdempotencyKey("idem_test")
	secondKey := drip.NewIdempotencyKey("idem_test")
	require.NotEqual(testInstance, firstKey, secondKey)
	require.Contains(testInstance, firstKey, "idem_test_")

	firstIdentifier := drip.NewExternalIdentifier("health_check")
	secondIdentifier := drip.NewExternalIdentifier("health_check")
	require.NotEqual(testInstance, firstIdentifier, secondIdentifier)
	require.Contains(testInstance, firstIdentifier, "health_check_")
}
