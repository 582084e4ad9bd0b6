package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testCookieHandler() *Handler {
	return &Handler{cfg: Config{
		SessionCookieName: "locallibrary_session",
		VisitCookieName:   "locallibrary_visits",
		CookiePath:        "/",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
	}}
}

func TestSetSessionCookie(t *testing.T) {
	h := testCookieHandler()

	rr := httptest.NewRecorder()
	exp := time.Now().UTC().Add(30 * time.Minute)
	h.setSessionCookie(rr, "v4.public.token", exp)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "locallibrary_session" || c.Value != "v4.public.token" {
		t.Fatalf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure {
		t.Fatalf("session cookie must be HttpOnly and Secure")
	}
}

func TestSessionToken_PrefersHeader(t *testing.T) {
	h := testCookieHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "locallibrary_session", Value: "from-cookie"})

	tok, fromCookie := h.sessionToken(req)
	if tok != "from-cookie" || !fromCookie {
		t.Fatalf("expected cookie token, got %q cookie=%v", tok, fromCookie)
	}

	req.Header.Set("Authorization", "Bearer from-header")
	tok, fromCookie = h.sessionToken(req)
	if tok != "from-header" || fromCookie {
		t.Fatalf("expected header token, got %q cookie=%v", tok, fromCookie)
	}
}

func TestAnonymousVisits(t *testing.T) {
	h := testCookieHandler()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if n := h.anonymousVisits(rr, req, now); n != 0 {
		t.Fatalf("first visit must report 0, got %d", n)
	}
	first := rr.Result().Cookies()
	if len(first) != 1 || first[0].Value != "1" {
		t.Fatalf("expected visit cookie=1, got %v", first)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "locallibrary_visits", Value: "4"})
	if n := h.anonymousVisits(rr, req, now); n != 4 {
		t.Fatalf("expected previous count 4, got %d", n)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "locallibrary_visits", Value: "garbage"})
	if n := h.anonymousVisits(rr, req, now); n != 0 {
		t.Fatalf("malformed cookie must reset the count, got %d", n)
	}
}
