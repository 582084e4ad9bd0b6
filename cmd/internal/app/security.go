package app

import (
	"errors"
	"fmt"

	"locallibrary/cmd/internal/auth/session"
	"locallibrary/cmd/security/token"
)

// loadSecrets resolves the token hasher and session config. With
// cfg.RequireSecrets unset, a missing signing key is replaced by a fresh
// one and logged; sessions then do not survive a restart.
func loadSecrets(cfg Config, log Logger) (token.Hasher, session.Config, error) {
	hasher := token.FromEnv()
	if cfg.RequireSecrets {
		key, err := token.RequireHMACKey()
		if err != nil {
			switch {
			case errors.Is(err, token.ErrHMACKeyMissing):
				return token.Hasher{}, session.Config{}, fmt.Errorf("security policy: %s is missing", token.HMACEnvKey)
			case errors.Is(err, token.ErrHMACKeyTooShort):
				return token.Hasher{}, session.Config{}, fmt.Errorf("security policy: %s is too short (min %d bytes)", token.HMACEnvKey, token.MinHMACKeyBytes)
			default:
				return token.Hasher{}, session.Config{}, err
			}
		}
		hasher = token.NewHasher(key)
	} else if !hasher.Keyed() {
		log.Warn("security.token_hmac.disabled", "env", token.HMACEnvKey)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	switch {
	case errors.Is(err, session.ErrMissingSecretKey):
		if cfg.RequireSecrets {
			return token.Hasher{}, session.Config{}, errors.New("security policy: LOCALLIBRARY_PASETO_V4_SECRET_KEY_HEX is missing")
		}
		log.Warn("security.session_key.ephemeral")
		sessCfg.PasetoV4SecretKeyHex = session.EphemeralKey()
	case err != nil:
		return token.Hasher{}, session.Config{}, err
	}

	return hasher, sessCfg, nil
}
