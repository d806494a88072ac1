// Package signature provides HMAC-SHA256 webhook signing and verification.
//
// The signed message is exactly "{timestamp}.{body}", where timestamp is
// unix milliseconds and body is the serialized envelope. The signature is a
// 64-character lowercase hex digest, sent in the X-Webhook-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Signer computes HMAC-SHA256 signatures for webhook payloads.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the HMAC-SHA256 signature for the given body.
// The content to sign is "{timestamp}.{body}". Returns a 64-character
// lowercase hex digest.
func (s *Signer) Sign(secret string, timestamp int64, body []byte) string {
	return Sign(secret, timestamp, body)
}

// Sign generates the HMAC-SHA256 signature for the given body.
// The content to sign is "{timestamp}.{body}". Returns a 64-character
// lowercase hex digest.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(strconv.AppendInt(nil, timestamp, 10))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
