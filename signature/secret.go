package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// secretPrefix marks signing secrets so they are recognizable in config
// files and never confused with API tokens.
const secretPrefix = "whsec_"

// GenerateSecret creates a cryptographically random signing secret:
// "whsec_" followed by 32 random bytes hex encoded, 70 characters total.
func GenerateSecret() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic("herald: failed to generate random secret: " + err.Error())
	}
	return secretPrefix + hex.EncodeToString(raw)
}
