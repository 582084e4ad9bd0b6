package httpio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "ok", body: `{"name":"Dune"}`},
		{name: "trailing newline", body: "{\"name\":\"Dune\"}\n"},
		{name: "unknown field", body: `{"name":"Dune","x":1}`, wantErr: true},
		{name: "two objects", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "too large", body: `{"name":"` + strings.Repeat("x", 128) + `"}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), r, 64, &dst)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Dune", dst.Name)
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusConflict, "conflict", "book copy is already on loan")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"conflict","message":"book copy is already on loan"}}`, rr.Body.String())
}

func TestRedirectToLogin(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/mybooks/?page=2", nil)
	rr := httptest.NewRecorder()
	RedirectToLogin(rr, r)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/accounts/login/?next=%2Fmybooks%2F%3Fpage%3D2", rr.Header().Get("Location"))
}

func TestPageParam(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		n  int
		ok bool
	}{
		"/books/":          {1, true},
		"/books/?page=3":   {3, true},
		"/books/?page=0":   {0, false},
		"/books/?page=abc": {0, false},
	}
	for target, want := range cases {
		n, ok := PageParam(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want.n, n, target)
		assert.Equal(t, want.ok, ok, target)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "bearer  v4.public.abc ")
	assert.Equal(t, "v4.public.abc", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9v")
	assert.Empty(t, BearerToken(r))
}

func TestClientIPAndSiteURL(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:5555"
	r.Host = "library.test"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.Header.Set("X-Forwarded-Proto", "https")

	assert.Equal(t, "10.0.0.5", ClientIP(r, false).String())
	assert.Equal(t, "203.0.113.9", ClientIP(r, true).String())
	assert.Equal(t, "http://library.test", SiteURL(r, false))
	assert.Equal(t, "https://library.test", SiteURL(r, true))
}
