package authapi

import (
	"net/http"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_CookieGuardrails(t *testing.T) {
	t.Setenv("LOCALLIBRARY_AUTH_SESSION_COOKIE_NAME", "lib")
	t.Setenv("LOCALLIBRARY_AUTH_VISIT_COOKIE_NAME", "lib")
	t.Setenv("LOCALLIBRARY_AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("LOCALLIBRARY_AUTH_COOKIE_SECURE", "false")

	cfg := LoadConfigFromEnv()

	if cfg.VisitCookieName == cfg.SessionCookieName {
		t.Fatalf("visit cookie name must differ from session cookie name")
	}
	if cfg.CookieSameSite != http.SameSiteNoneMode {
		t.Fatalf("expected SameSite=None, got %v", cfg.CookieSameSite)
	}
	if !cfg.CookieSecure {
		t.Fatalf("SameSite=None requires Secure=true")
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOCALLIBRARY_SITE_URL", "https://library.example/")
	t.Setenv("LOCALLIBRARY_AUTH_LOGIN_IP_MAX", "-3")
	t.Setenv("LOCALLIBRARY_AUTH_LOGIN_IP_WINDOW", "soon")

	cfg := LoadConfigFromEnv()

	if cfg.SiteURL != "https://library.example" {
		t.Fatalf("SiteURL=%q", cfg.SiteURL)
	}
	if cfg.LoginIPMax != 20 || cfg.LoginIPWindow != 5*time.Minute {
		t.Fatalf("invalid values must fall back to defaults, got %d %v", cfg.LoginIPMax, cfg.LoginIPWindow)
	}
	if cfg.SessionCookieName != "locallibrary_session" {
		t.Fatalf("SessionCookieName=%q", cfg.SessionCookieName)
	}
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		in   string
		want http.SameSite
	}{
		{in: "strict", want: http.SameSiteStrictMode},
		{in: "lax", want: http.SameSiteLaxMode},
		{in: "none", want: http.SameSiteNoneMode},
		{in: "default", want: http.SameSiteDefaultMode},
		{in: "unknown", want: http.SameSiteLaxMode},
	}

	for _, tc := range tests {
		got := parseSameSite(tc.in)
		if got != tc.want {
			t.Fatalf("parseSameSite(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
