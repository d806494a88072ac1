package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/deltacrown/herald/signature"
)

func TestSignKnownVector(t *testing.T) {
	body := []byte(`{"event":"payment_verified"}`)
	secret := "whsec_testsecret123"
	timestamp := int64(1700000000000)

	got := signature.Sign(secret, timestamp, body)

	// Compute expected HMAC-SHA256 independently.
	content := fmt.Sprintf("%d.%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	expected := hex.EncodeToString(mac.Sum(nil))

	if got != expected {
		t.Errorf("Sign() = %q, want %q", got, expected)
	}
}

func TestSignFormat(t *testing.T) {
	sig := signature.Sign("secret", 1700000000000, []byte("test"))

	// SHA256 = 32 bytes = 64 lowercase hex chars, no prefix.
	if len(sig) != 64 {
		t.Fatalf("expected signature length 64, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Error("signature should be lowercase hex")
	}
	if _, err := hex.DecodeString(sig); err != nil {
		t.Errorf("signature is not valid hex: %v", err)
	}
}

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"match_id":"m-101"}`)
	a := signature.Sign("whsec_det", 1700000000001, body)
	b := signature.Sign("whsec_det", 1700000000001, body)
	if a != b {
		t.Error("same inputs produced different signatures")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := signature.NewSigner()
	body := []byte(`{"tournament_id":"t-7","amount":9900}`)
	secret := "whsec_roundtripsecret"
	timestamp := int64(1700000000001)

	sig := signer.Sign(secret, timestamp, body)
	if !signer.Verify(secret, timestamp, body, sig) {
		t.Error("Verify() returned false for valid signature")
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	body := []byte(`{"original":true}`)
	secret := "whsec_tampersecret"
	timestamp := int64(1700000000002)

	sig := signature.Sign(secret, timestamp, body)

	tampered := []byte(`{"original":false}`)
	if signature.Verify(secret, timestamp, tampered, sig) {
		t.Error("Verify() returned true for tampered body")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	body := []byte(`{"data":"value"}`)
	timestamp := int64(1700000000003)

	sig := signature.Sign("whsec_correct", timestamp, body)

	if signature.Verify("whsec_wrong", timestamp, body, sig) {
		t.Error("Verify() returned true for wrong secret")
	}
}

func TestVerifyWrongTimestamp(t *testing.T) {
	body := []byte(`{"data":"value"}`)
	secret := "whsec_timestampsecret"
	timestamp := int64(1700000000004)

	sig := signature.Sign(secret, timestamp, body)

	if signature.Verify(secret, timestamp+1, body, sig) {
		t.Error("Verify() returned true for wrong timestamp")
	}
}

func TestFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"current", now, true},
		{"just inside window", now.Add(-signature.ReplayWindow + time.Second), true},
		{"at window boundary", now.Add(-signature.ReplayWindow), true},
		{"past window", now.Add(-signature.ReplayWindow - time.Second), false},
		{"slightly future within skew", now.Add(signature.ClockSkew - time.Second), true},
		{"future beyond skew", now.Add(signature.ClockSkew + time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := signature.Fresh(tt.ts.UnixMilli(), now); got != tt.want {
				t.Errorf("Fresh(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}
