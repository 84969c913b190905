package drip

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload computes the hex-encoded HMAC-SHA256 signature the Drip backend
// attaches to webhook deliveries.
func SignPayload(secret string, payload []byte) string {
	digest := hmac.New(sha256.New, []byte(secret))
	digest.Write(payload)
	return hex.EncodeToString(digest.Sum(nil))
}

// VerifySignature reports whether the signature matches the payload under the
// secret, using a constant-time comparison.
func VerifySignature(secret string, payload []byte, signature string) bool {
	expectedSignature := SignPayload(secret, payload)
	return hmac.Equal([]byte(expectedSignature), []byte(signature))
}
