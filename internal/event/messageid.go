package event

import (
	"crypto/sha256"
	"encoding/hex"
)

// MessageID derives the deterministic message identity from the routing key and
// the serialized payload. Both the publish path (stamping the broker message)
// and the consume path (fallback when a producer omitted the id) use this same
// function, so a republished duplicate always collapses to one identity in the
// inbox ledger.
func MessageID(routingKey string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(routingKey))
	h.Write([]byte(":"))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
