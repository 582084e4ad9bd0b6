// Package authapi serves member signup, login, logout, profile and email
// verification, and resolves the caller of every request.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/identity/ids"
	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/auth/session"
	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/httpio"
)

// LoggedOutMessage answers a logout.
const LoggedOutMessage = "You have been logged out."

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config
	now func() time.Time

	accounts *identity.Accounts
	sessions *session.Service
	failures *failureLog
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the time source used for sessions and throttling.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, accounts *identity.Accounts, sessions *session.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("auth: nil accounts")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}
	def := DefaultConfig()
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = def.SessionCookieName
	}
	if cfg.VisitCookieName == "" {
		cfg.VisitCookieName = def.VisitCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		accounts: accounts,
		sessions: sessions,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	h.failures = newFailureLog(h.failureRetention())
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /accounts/signup", h.handleSignup)
	mux.HandleFunc("POST /accounts/login/", h.handleLogin)
	mux.HandleFunc("POST /accounts/logout/", h.handleLogout)
	mux.HandleFunc("GET /accounts/profile/{pk}", h.handleProfile)
	mux.HandleFunc("POST /accounts/profile/{pk}", h.handleProfileUpdate)
	mux.HandleFunc("GET /accounts/{uid}/verify/{token}", h.handleVerify)
}

// SessionService exposes the session service (used by other modules).
func (h *Handler) SessionService() *session.Service {
	if h == nil {
		return nil
	}
	return h.sessions
}

// Authenticate resolves the caller from the access token and stores it in the
// request context as an access.Actor. Requests without a valid session proceed
// anonymously; a stale session cookie is cleared.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, fromCookie := h.sessionToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		claims, err := h.sessions.ValidateAccessToken(ctx, tok, h.now())
		if err != nil {
			if !isSessionRejection(err) {
				h.log.Error("auth.authenticate.fail", "err", err)
				httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
				return
			}
			if fromCookie {
				h.clearSessionCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		u, err := h.accounts.Get(ctx, claims.UserID)
		if err != nil {
			if !identity.IsNotFound(err) {
				h.log.Error("auth.authenticate.user.fail", "err", err)
				httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if !u.Active {
			next.ServeHTTP(w, r)
			return
		}

		actor := access.Actor{
			UserID:      u.ID,
			Username:    u.Username,
			SessionID:   claims.SessionID,
			Permissions: u.Permissions,
		}
		next.ServeHTTP(w, r.WithContext(access.WithActor(ctx, actor)))
	})
}

func isSessionRejection(err error) bool {
	return errors.Is(err, session.ErrInvalidToken) ||
		errors.Is(err, session.ErrSessionExpired) ||
		errors.Is(err, session.ErrSessionRevoked) ||
		errors.Is(err, session.ErrSessionNotFound)
}

// CountVisit records a home page visit and returns the count before it.
// Logged-in callers count on their session row, others on a cookie.
func (h *Handler) CountVisit(w http.ResponseWriter, r *http.Request) (int, error) {
	actor := access.FromContext(r.Context())
	if actor.SessionID == "" {
		return h.anonymousVisits(w, r, h.now()), nil
	}
	return h.sessions.Visit(r.Context(), h.now(), actor.SessionID)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	actor := access.FromContext(r.Context())
	if err := access.Authorize(actor, access.Signup, ""); err != nil {
		http.Redirect(w, r, profileURL(actor.UserID), http.StatusFound)
		return
	}

	var in identity.SignupInput
	if err := httpio.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &in); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	site := h.cfg.SiteURL
	if site == "" {
		site = httpio.SiteURL(r, h.cfg.TrustProxy)
	}
	u, err := h.accounts.Signup(ctx, site, in)
	if err != nil {
		h.failIdentity(w, "auth.signup", err)
		return
	}

	h.auditSignup(ctx, u.ID, httpio.ClientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	httpio.WriteJSON(w, http.StatusCreated, userMessageResponse{
		Message: identity.SignupMessage,
		User:    toUserResponse(u),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpio.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		httpio.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := httpio.ClientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if blocked, retryAfter := h.checkLoginIPThrottle(ip, now); blocked {
		h.auditLoginRateLimited(ctx, ip, ua, username, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter := h.checkLoginUserThrottle(username, now); blocked {
		h.auditLoginRateLimited(ctx, ip, ua, username, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	u, err := h.accounts.Authenticate(ctx, username, req.Password)
	switch {
	case err == nil:
	case identity.IsInvalidCredentials(err):
		h.recordLoginFailure(ip, username, now)
		h.auditLoginFailed(ctx, ip, ua, username, "invalid_credentials")
		httpio.WriteError(w, http.StatusUnauthorized, "invalid_credentials", identity.Message(err))
		return
	case identity.IsNotActive(err):
		h.auditLoginFailed(ctx, ip, ua, username, "not_active")
		httpio.WriteError(w, http.StatusForbidden, "not_active", identity.Message(err))
		return
	default:
		h.log.Error("auth.login.fail", "err", err)
		httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	issued, err := h.sessions.IssueSession(ctx, now, u.ID, session.DeviceContext{UserAgent: ua, IP: ip})
	if err != nil {
		h.log.Error("auth.login.issue_session.fail", "err", err)
		httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	h.failures.reset(userKey(username))
	h.auditLoginSuccess(ctx, u.ID, issued.SessionID, ip, ua)

	h.setSessionCookie(w, issued.AccessToken, issued.AccessExp)
	httpio.WriteJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(u),
		Session: toSessionResponse(issued),
		Next:    safeNext(r.URL.Query().Get("next")),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor := access.FromContext(r.Context())
	if actor.SessionID != "" {
		if err := h.sessions.RevokeSession(r.Context(), h.now(), actor.SessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			h.log.Error("auth.logout.fail", "err", err)
			httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		h.auditLogout(r.Context(), actor.UserID, actor.SessionID, httpio.ClientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	}
	h.clearSessionCookie(w)
	httpio.WriteJSON(w, http.StatusOK, httpio.Message{Message: LoggedOutMessage})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	pk := r.PathValue("pk")
	if !h.authorizeProfile(w, r, access.ViewProfile, pk) {
		return
	}
	u, err := h.accounts.Get(r.Context(), pk)
	if err != nil {
		h.failIdentity(w, "auth.profile", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	pk := r.PathValue("pk")
	if !h.authorizeProfile(w, r, access.UpdateProfile, pk) {
		return
	}
	var in identity.ProfileUpdate
	if err := httpio.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &in); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	u, err := h.accounts.UpdateProfile(r.Context(), pk, in)
	if err != nil {
		h.failIdentity(w, "auth.profile.update", err)
		return
	}
	h.auditProfileUpdated(r.Context(), u.ID, httpio.ClientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	httpio.WriteJSON(w, http.StatusOK, userMessageResponse{
		Message: identity.ProfileMessage,
		User:    toUserResponse(u),
	})
}

func (h *Handler) authorizeProfile(w http.ResponseWriter, r *http.Request, action access.Action, owner string) bool {
	err := access.Authorize(access.FromContext(r.Context()), action, owner)
	switch {
	case err == nil:
		return true
	case catalog.IsUnauthenticated(err):
		httpio.RedirectToLogin(w, r)
	default:
		httpio.WriteError(w, http.StatusForbidden, "forbidden", catalog.Message(err))
	}
	return false
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	if !ids.Valid(uid) {
		httpio.WriteError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	ctx := r.Context()
	ip := httpio.ClientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	u, err := h.accounts.Verify(ctx, uid, r.PathValue("token"))
	if err != nil {
		if identity.IsTokenMismatch(err) {
			h.auditVerify(ctx, uid, false, ip, ua)
			httpio.WriteError(w, http.StatusBadRequest, "token_mismatch", identity.Message(err))
			return
		}
		h.failIdentity(w, "auth.verify", err)
		return
	}
	h.auditVerify(ctx, u.ID, true, ip, ua)
	httpio.WriteJSON(w, http.StatusOK, verifyResponse{Message: identity.VerifiedMessage, Next: httpio.LoginPath})
}

// failIdentity maps identity error kinds to HTTP responses.
func (h *Handler) failIdentity(w http.ResponseWriter, op string, err error) {
	switch {
	case identity.IsInvalidInput(err):
		httpio.WriteError(w, http.StatusBadRequest, "validation", identity.Message(err))
	case identity.IsConflict(err):
		httpio.WriteError(w, http.StatusConflict, "conflict", identity.Message(err))
	case identity.IsNotFound(err):
		httpio.WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		h.log.Error(op+".fail", "err", err)
		httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// safeNext keeps only same-site absolute paths.
func safeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	return raw
}
