package signature

import (
	"crypto/hmac"
	"time"
)

// Receiver-side freshness bounds. A receiver must reject timestamps older
// than ReplayWindow, tolerating up to ClockSkew in the future direction.
const (
	ReplayWindow = 300 * time.Second
	ClockSkew    = 30 * time.Second
)

// Verify checks whether the given signature matches the expected HMAC-SHA256
// signature for the secret, timestamp, and body. Comparison is constant-time.
func (s *Signer) Verify(secret string, timestamp int64, body []byte, sig string) bool {
	return Verify(secret, timestamp, body, sig)
}

// Verify checks whether the given signature matches the expected HMAC-SHA256
// signature for the secret, timestamp, and body. Comparison is constant-time.
func Verify(secret string, timestamp int64, body []byte, sig string) bool {
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Fresh reports whether a signed timestamp (unix milliseconds) is inside the
// replay window relative to now. Receivers call this after Verify.
func Fresh(timestampMs int64, now time.Time) bool {
	ts := time.UnixMilli(timestampMs)
	age := now.Sub(ts)
	if age > ReplayWindow {
		return false
	}
	if age < -ClockSkew {
		return false
	}
	return true
}
