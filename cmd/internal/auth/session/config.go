package session

import (
	"os"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// AccessTokenTTL defines the lifetime of PASETO access tokens.
	AccessTokenTTL time.Duration

	// SessionTTL bounds the session row; a token never outlives its session.
	SessionTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key
	// used to sign PASETO v4.public access tokens.
	PasetoV4SecretKeyHex string
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		Issuer:         "locallibrary",
		AccessTokenTTL: 12 * time.Hour,
		SessionTTL:     14 * 24 * time.Hour,
		ClockSkew:      30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - LOCALLIBRARY_PASETO_V4_SECRET_KEY_HEX
//
// Optional (durations must be valid Go duration strings):
//   - LOCALLIBRARY_AUTH_ISSUER
//   - LOCALLIBRARY_AUTH_ACCESS_TTL
//   - LOCALLIBRARY_AUTH_SESSION_TTL
//   - LOCALLIBRARY_AUTH_CLOCK_SKEW
//
// A missing key yields the parsed config together with ErrMissingSecretKey so
// development setups can fall back to EphemeralKey. Any other problem is ErrConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("LOCALLIBRARY_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		env      string
		dst      *time.Duration
		zeroOkay bool
	}{
		{"LOCALLIBRARY_AUTH_ACCESS_TTL", &cfg.AccessTokenTTL, false},
		{"LOCALLIBRARY_AUTH_SESSION_TTL", &cfg.SessionTTL, false},
		{"LOCALLIBRARY_AUTH_CLOCK_SKEW", &cfg.ClockSkew, true},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.zeroOkay) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	// Invariant: an access token must not outlive its session.
	if cfg.AccessTokenTTL > cfg.SessionTTL {
		return Config{}, ErrConfig
	}

	cfg.PasetoV4SecretKeyHex = os.Getenv("LOCALLIBRARY_PASETO_V4_SECRET_KEY_HEX")
	if cfg.PasetoV4SecretKeyHex == "" {
		return cfg, ErrMissingSecretKey
	}
	return cfg, nil
}

// EphemeralKey returns a freshly generated secret key in hex. Tokens signed
// with it do not survive a restart.
func EphemeralKey() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}
