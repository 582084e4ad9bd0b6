package authapi

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/auth/session"
	"locallibrary/cmd/internal/httpio"
	"locallibrary/cmd/internal/mail"
	"locallibrary/cmd/security/password"
	"locallibrary/cmd/security/token"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "borrowed-time-42"

type authServer struct {
	handler  http.Handler
	auth     *Handler
	accounts *identity.Accounts
	outbox   *mail.Outbox
	now      time.Time
}

func newAuthServer(t *testing.T, mutate func(*Config)) *authServer {
	t.Helper()

	s := &authServer{
		outbox: &mail.Outbox{},
		now:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return s.now }
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pw := password.DefaultConfig()
	pw.Params.MemoryKiB = 8 * 1024
	pw.Params.Iterations = 1

	accounts, err := identity.NewAccounts(identity.NewMemoryStore(),
		identity.WithPasswordConfig(pw),
		identity.WithTokenHasher(token.NewHasher([]byte("0123456789abcdef0123456789abcdef"))),
		identity.WithMailer(s.outbox, time.Second),
		identity.WithAccountsClock(clock),
		identity.WithAccountsLogger(log),
	)
	require.NoError(t, err)

	sessCfg := session.DefaultConfig()
	sessCfg.PasetoV4SecretKeyHex = session.EphemeralKey()
	tokens, err := session.NewPasetoV4PublicManager(sessCfg)
	require.NoError(t, err)
	sessions := session.NewService(sessCfg, session.NewMemoryStore(), tokens)

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := NewHandler(log, accounts, sessions, cfg, WithClock(clock))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		httpio.WriteJSON(w, http.StatusOK, access.FromContext(r.Context()))
	})
	mux.HandleFunc("GET /visits", func(w http.ResponseWriter, r *http.Request) {
		n, err := h.CountVisit(w, r)
		require.NoError(t, err)
		httpio.WriteJSON(w, http.StatusOK, map[string]int{"num_visits": n})
	})

	s.auth = h
	s.accounts = accounts
	s.handler = h.Authenticate(mux)
	return s
}

type reqOpt func(*http.Request)

func bearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (s *authServer) do(t *testing.T, method, target string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type apiErr struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func signupBody(username string) identity.SignupInput {
	return identity.SignupInput{
		Username:  username,
		Email:     username + "@example.com",
		Password1: testPassword,
		Password2: testPassword,
	}
}

// member signs up and verifies username, returning its id.
func (s *authServer) member(t *testing.T, username string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/accounts/signup", signupBody(username))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	u := decode[userMessageResponse](t, rr).User

	msgs := s.outbox.Messages()
	require.NotEmpty(t, msgs)
	link := msgs[len(msgs)-1].Body
	i := strings.Index(link, "/accounts/"+u.ID+"/verify/")
	require.GreaterOrEqual(t, i, 0, link)

	rr = s.do(t, http.MethodGet, strings.TrimSpace(link[i:]), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return u.ID
}

func (s *authServer) login(t *testing.T, username string) loginResponse {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/accounts/login/", loginRequest{Username: username, Password: testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[loginResponse](t, rr)
}

func TestSignupVerifyLogin(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)

	rr := s.do(t, http.MethodPost, "/accounts/signup", signupBody("reader"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[userMessageResponse](t, rr)
	assert.Equal(t, identity.SignupMessage, created.Message)
	assert.False(t, created.User.Active)
	assert.Equal(t, []string{identity.GroupMembers}, created.User.Groups)

	msgs := s.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, identity.SignupSubject, msgs[0].Subject)
	assert.Equal(t, []string{"reader@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].Body, "http://example.com/accounts/"+created.User.ID+"/verify/")

	rr = s.do(t, http.MethodPost, "/accounts/login/", loginRequest{Username: "reader", Password: testPassword})
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, identity.InactiveMessage, decode[apiErr](t, rr).Error.Message)

	rr = s.do(t, http.MethodGet, "/accounts/"+created.User.ID+"/verify/not-the-token", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, identity.MismatchMessage, decode[apiErr](t, rr).Error.Message)

	rr = s.do(t, http.MethodGet, "/accounts/not-a-ulid/verify/not-the-token", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	body := msgs[0].Body
	link := body[strings.Index(body, "/accounts/"):]
	rr = s.do(t, http.MethodGet, strings.TrimSpace(link), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	verified := decode[verifyResponse](t, rr)
	assert.Equal(t, identity.VerifiedMessage, verified.Message)
	assert.Equal(t, "/accounts/login/", verified.Next)

	rr = s.do(t, http.MethodPost, "/accounts/login/?next=/mybooks/", loginRequest{Username: "Reader", Password: testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	logged := decode[loginResponse](t, rr)
	assert.Equal(t, created.User.ID, logged.User.ID)
	assert.Equal(t, "/mybooks/", logged.Next)
	assert.NotEmpty(t, logged.Session.AccessToken)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "locallibrary_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignup_Rejections(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	s.member(t, "reader")

	rr := s.do(t, http.MethodPost, "/accounts/signup", signupBody("READER"))
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "A user with that username already exists.", decode[apiErr](t, rr).Error.Message)

	mismatch := signupBody("other")
	mismatch.Password2 = "something-else-99"
	rr = s.do(t, http.MethodPost, "/accounts/signup", mismatch)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "The two password fields didn't match.", decode[apiErr](t, rr).Error.Message)

	rr = s.do(t, http.MethodPost, "/accounts/signup", map[string]string{"username": "x", "nickname": "y"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_AuthenticatedRedirectsToProfile(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	id := s.member(t, "reader")
	tok := s.login(t, "reader").Session.AccessToken

	rr := s.do(t, http.MethodPost, "/accounts/signup", signupBody("second"), bearer(tok))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/accounts/profile/"+id, rr.Header().Get("Location"))
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	s.member(t, "reader")

	for _, req := range []loginRequest{
		{Username: "reader", Password: "wrong-password-1"},
		{Username: "nobody", Password: testPassword},
	} {
		rr := s.do(t, http.MethodPost, "/accounts/login/", req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		eb := decode[apiErr](t, rr)
		assert.Equal(t, "invalid_credentials", eb.Error.Code)
		assert.Equal(t, identity.BadLoginMessage, eb.Error.Message)
	}

	rr := s.do(t, http.MethodPost, "/accounts/login/", loginRequest{Username: "reader"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_ProgressiveLockout(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, func(cfg *Config) {
		cfg.LockoutShortThreshold = 3
		cfg.LockoutShortDuration = time.Minute
	})
	s.member(t, "reader")

	for range 3 {
		rr := s.do(t, http.MethodPost, "/accounts/login/", loginRequest{Username: "reader", Password: "wrong-password-1"})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := s.do(t, http.MethodPost, "/accounts/login/", loginRequest{Username: "reader", Password: testPassword})
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	s.now = s.now.Add(61 * time.Second)
	s.login(t, "reader")
}

func TestAuthenticate_ResolvesActor(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	id := s.member(t, "reader")

	rr := s.do(t, http.MethodGet, "/whoami", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[access.Actor](t, rr).Authenticated())

	logged := s.login(t, "reader")

	rr = s.do(t, http.MethodGet, "/whoami", nil, bearer(logged.Session.AccessToken))
	actor := decode[access.Actor](t, rr)
	assert.Equal(t, id, actor.UserID)
	assert.Equal(t, logged.Session.SessionID, actor.SessionID)
	assert.False(t, actor.Has(access.PermMarkReturned))

	rr = s.do(t, http.MethodGet, "/whoami", nil, withCookie(&http.Cookie{Name: "locallibrary_session", Value: logged.Session.AccessToken}))
	assert.Equal(t, id, decode[access.Actor](t, rr).UserID)

	rr = s.do(t, http.MethodGet, "/whoami", nil, withCookie(&http.Cookie{Name: "locallibrary_session", Value: "stale"}))
	assert.False(t, decode[access.Actor](t, rr).Authenticated())
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthenticate_LibrarianPermissions(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	s.member(t, "librarian")
	_, err := s.accounts.Promote(t.Context(), "librarian")
	require.NoError(t, err)

	tok := s.login(t, "librarian").Session.AccessToken
	rr := s.do(t, http.MethodGet, "/whoami", nil, bearer(tok))
	assert.True(t, decode[access.Actor](t, rr).Has(access.PermMarkReturned))
}

func TestLogout_RevokesSession(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	id := s.member(t, "reader")
	tok := s.login(t, "reader").Session.AccessToken

	rr := s.do(t, http.MethodPost, "/accounts/logout/", nil, bearer(tok))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, LoggedOutMessage, decode[httpio.Message](t, rr).Message)

	rr = s.do(t, http.MethodGet, "/accounts/profile/"+id, nil, bearer(tok))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/accounts/login/?next="))
}

func TestProfile(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	id := s.member(t, "reader")
	otherID := s.member(t, "other")
	tok := s.login(t, "reader").Session.AccessToken

	rr := s.do(t, http.MethodGet, "/accounts/profile/"+id, nil)
	assert.Equal(t, http.StatusFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/accounts/profile/"+id, nil, bearer(tok))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "reader", decode[userResponse](t, rr).Username)

	rr = s.do(t, http.MethodGet, "/accounts/profile/"+otherID, nil, bearer(tok))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Forbidden Request. Not allowed to acccess other people's profile.", decode[apiErr](t, rr).Error.Message)

	update := identity.ProfileUpdate{Username: "reader", Email: "reader@example.org", FirstName: "Ada", LastName: "Lovelace"}
	rr = s.do(t, http.MethodPost, "/accounts/profile/"+id, update, bearer(tok))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[userMessageResponse](t, rr)
	assert.Equal(t, identity.ProfileMessage, updated.Message)
	assert.Equal(t, "Ada Lovelace", updated.User.FullName)

	update.Username = "other"
	rr = s.do(t, http.MethodPost, "/accounts/profile/"+id, update, bearer(tok))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCountVisit(t *testing.T) {
	t.Parallel()
	s := newAuthServer(t, nil)
	s.member(t, "reader")
	tok := s.login(t, "reader").Session.AccessToken

	for want := range 3 {
		rr := s.do(t, http.MethodGet, "/visits", nil, bearer(tok))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, want, decode[map[string]int](t, rr)["num_visits"])
	}

	rr := s.do(t, http.MethodGet, "/visits", nil)
	assert.Equal(t, 0, decode[map[string]int](t, rr)["num_visits"])
	rr = s.do(t, http.MethodGet, "/visits", nil, withCookie(&http.Cookie{Name: "locallibrary_visits", Value: "5"}))
	assert.Equal(t, 5, decode[map[string]int](t, rr)["num_visits"])
}
