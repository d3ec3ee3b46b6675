package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLength = 12

// Bytes returns n bytes from the system CSPRNG.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Fingerprint returns a short, stable identifier for s.
func Fingerprint(s string) string {
	return FingerprintBytes([]byte(s))
}

// FingerprintBytes is Fingerprint for byte slices.
func FingerprintBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])[:fingerprintLength]
}
