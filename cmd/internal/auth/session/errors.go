package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when an access token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionNotFound is returned when no session row matches.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session is expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the session has been revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrMissingSecretKey is returned by LoadConfigFromEnv when no signing key
	// is configured. It wraps ErrConfig.
	ErrMissingSecretKey = fmt.Errorf("%w: missing LOCALLIBRARY_PASETO_V4_SECRET_KEY_HEX", ErrConfig)
)
