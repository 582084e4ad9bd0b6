package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"
)

// HMACEnvKey is the env var holding the token HMAC secret.
// #nosec G101 -- not a credential; it's an environment variable name.
const HMACEnvKey = "LOCALLIBRARY_TOKEN_HMAC_KEY"

// MinHMACKeyBytes is the shortest key accepted by RequireHMACKey.
const MinHMACKeyBytes = 32

// Hasher digests tokens. The zero value uses SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns an HMAC hasher for key, or a SHA-256 hasher when key is empty.
func NewHasher(key []byte) Hasher { return Hasher{key: key} }

// FromEnv builds a Hasher from LOCALLIBRARY_TOKEN_HMAC_KEY.
func FromEnv() Hasher {
	return NewHasher([]byte(strings.TrimSpace(os.Getenv(HMACEnvKey))))
}

// RequireHMACKey returns the configured key, failing when it is missing or
// shorter than MinHMACKeyBytes. Production deployments call it at startup.
func RequireHMACKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	if len(raw) < MinHMACKeyBytes {
		return nil, ErrHMACKeyTooShort
	}
	return []byte(raw), nil
}

// Keyed reports whether h uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hex returns the 64-char hex digest of tok.
func (h Hasher) Hex(tok string) string {
	if !h.Keyed() {
		sum := sha256.Sum256([]byte(tok))
		return hex.EncodeToString(sum[:])
	}
	m := hmac.New(sha256.New, h.key)
	_, _ = m.Write([]byte(tok))
	return hex.EncodeToString(m.Sum(nil))
}

// Matches reports whether tok hashes to stored, in constant time.
func (h Hasher) Matches(stored, tok string) bool {
	return EqualHex64(stored, h.Hex(tok))
}

// EqualHex64 compares two 64-char hex digests in constant time. Any other
// length compares unequal without inspecting content.
func EqualHex64(a, b string) bool {
	if len(a) != 64 || len(b) != 64 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
