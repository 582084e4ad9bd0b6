package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	// SiteURL prefixes verification links. Empty means the request's own host.
	SiteURL      string
	TrustProxy   bool
	MaxBodyBytes int64

	SessionCookieName string
	VisitCookieName   string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	LoginIPMax    int
	LoginIPWindow time.Duration

	LoginUserWindow        time.Duration
	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration
}

// DefaultConfig is the configuration with no environment overrides.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:           1 << 20,
		SessionCookieName:      "locallibrary_session",
		VisitCookieName:        "locallibrary_visits",
		CookiePath:             "/",
		CookieSameSite:         http.SameSiteLaxMode,
		LoginIPMax:             20,
		LoginIPWindow:          5 * time.Minute,
		LoginUserWindow:        15 * time.Minute,
		LockoutShortThreshold:  5,
		LockoutShortDuration:   5 * time.Minute,
		LockoutLongThreshold:   10,
		LockoutLongDuration:    30 * time.Minute,
		LockoutSevereThreshold: 20,
		LockoutSevereDuration:  2 * time.Hour,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		SiteURL:                strings.TrimRight(strings.TrimSpace(os.Getenv("LOCALLIBRARY_SITE_URL")), "/"),
		TrustProxy:             envBool("LOCALLIBRARY_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:           envInt64("LOCALLIBRARY_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		SessionCookieName:      envString("LOCALLIBRARY_AUTH_SESSION_COOKIE_NAME", def.SessionCookieName),
		VisitCookieName:        envString("LOCALLIBRARY_AUTH_VISIT_COOKIE_NAME", def.VisitCookieName),
		CookiePath:             envString("LOCALLIBRARY_AUTH_COOKIE_PATH", def.CookiePath),
		CookieDomain:           strings.TrimSpace(os.Getenv("LOCALLIBRARY_AUTH_COOKIE_DOMAIN")),
		CookieSecure:           envBool("LOCALLIBRARY_AUTH_COOKIE_SECURE", false),
		CookieSameSite:         parseSameSite(os.Getenv("LOCALLIBRARY_AUTH_COOKIE_SAMESITE")),
		LoginIPMax:             envInt("LOCALLIBRARY_AUTH_LOGIN_IP_MAX", def.LoginIPMax),
		LoginIPWindow:          envDuration("LOCALLIBRARY_AUTH_LOGIN_IP_WINDOW", def.LoginIPWindow),
		LoginUserWindow:        envDuration("LOCALLIBRARY_AUTH_LOGIN_USER_WINDOW", def.LoginUserWindow),
		LockoutShortThreshold:  envInt("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_SHORT_THRESHOLD", def.LockoutShortThreshold),
		LockoutShortDuration:   envDuration("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_SHORT_DURATION", def.LockoutShortDuration),
		LockoutLongThreshold:   envInt("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_LONG_THRESHOLD", def.LockoutLongThreshold),
		LockoutLongDuration:    envDuration("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_LONG_DURATION", def.LockoutLongDuration),
		LockoutSevereThreshold: envInt("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_SEVERE_THRESHOLD", def.LockoutSevereThreshold),
		LockoutSevereDuration:  envDuration("LOCALLIBRARY_AUTH_LOGIN_LOCKOUT_SEVERE_DURATION", def.LockoutSevereDuration),
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}
	if cfg.VisitCookieName == cfg.SessionCookieName {
		cfg.VisitCookieName = cfg.SessionCookieName + "_visits"
	}
	return cfg
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
