package authapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"locallibrary/cmd/internal/httpio"
)

// visitCookieTTL bounds how long an anonymous visit count survives.
const visitCookieTTL = 14 * 24 * time.Hour

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.SessionCookieName)
}

// sessionToken returns the access token of r, preferring the Authorization
// header over the session cookie. fromCookie reports where it came from.
func (h *Handler) sessionToken(r *http.Request) (tok string, fromCookie bool) {
	if tok := httpio.BearerToken(r); tok != "" {
		return tok, false
	}
	c, err := r.Cookie(h.cfg.SessionCookieName)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(c.Value), true
}

// anonymousVisits reads the visit cookie and stores the incremented count.
func (h *Handler) anonymousVisits(w http.ResponseWriter, r *http.Request, now time.Time) int {
	n := 0
	if c, err := r.Cookie(h.cfg.VisitCookieName); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(c.Value)); err == nil && v > 0 {
			n = v
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.VisitCookieName,
		Value:    strconv.Itoa(n + 1),
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  now.Add(visitCookieTTL),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
	return n
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}
