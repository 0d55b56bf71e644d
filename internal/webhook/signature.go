// Package webhook authenticates and validates inbound message notifications
// before they reach storage.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a caller-supplied signature against the hex-encoded
// HMAC-SHA256 of the raw body. The body must be the exact bytes received;
// re-serializing it would invalidate the digest.
//
// An empty signature is rejected before any HMAC work. The comparison is
// constant time.
func VerifySignature(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
