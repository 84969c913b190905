package drip

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	identifierTemplateConstant        = "%s_%s"
	idempotencyKeyRandomBytesConstant = 16
	externalIDRandomBytesConstant     = 4
)

// NewIdempotencyKey returns a unique idempotency key with the given prefix.
func NewIdempotencyKey(prefix string) string {
	return fmt.Sprintf(identifierTemplateConstant, prefix, randomHex(idempotencyKeyRandomBytesConstant))
}

// NewExternalIdentifier returns a short unique external identifier for test resources.
func NewExternalIdentifier(prefix string) string {
	return fmt.Sprintf(identifierTemplateConstant, prefix, randomHex(externalIDRandomBytesConstant))
}

func randomHex(byteCount int) string {
	randomBytes := make([]byte, byteCount)
	_, _ = rand.Read(randomBytes)
	return hex.EncodeToString(randomBytes)
}
