package identity

import (
	"github.com/google/uuid"

	"locallibrary/cmd/security/token"
)

// NewVerificationToken returns a random UUIDv4 token for the email
// verification link, and its digest for storage. Only the digest is persisted.
func NewVerificationToken(h token.Hasher) (plain, digest string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", err
	}
	plain = id.String()
	return plain, h.Hex(plain), nil
}
