package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AccessTokenTTL = time.Hour
	cfg.SessionTTL = 2 * time.Hour
	cfg.PasetoV4SecretKeyHex = EphemeralKey()
	return cfg
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	cfg := testConfig(t)
	tokens, err := NewPasetoV4PublicManager(cfg)
	if err != nil {
		t.Fatalf("NewPasetoV4PublicManager: %v", err)
	}
	return NewService(cfg, store, tokens)
}

func TestPasetoV4_IssueAndVerify(t *testing.T) {
	t.Parallel()

	mgr, err := NewPasetoV4PublicManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewPasetoV4PublicManager: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	tok, exp, err := mgr.Issue("01HZZZZZZZZZZZZZZZZZZZZZZZ", "01HYYYYYYYYYYYYYYYYYYYYYYY", now, time.Time{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want now+1h", exp)
	}

	claims, err := mgr.Verify(tok, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" || claims.SessionID != "01HYYYYYYYYYYYYYYYYYYYYYYY" {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	if _, err := mgr.Verify(tok, now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	if _, err := mgr.Verify(tok+"x", now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to fail, got %v", err)
	}
}

func TestPasetoV4_ExpiryCappedBySession(t *testing.T) {
	t.Parallel()

	mgr, err := NewPasetoV4PublicManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewPasetoV4PublicManager: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	_, exp, err := mgr.Issue("u", "s", now, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("exp = %v, want capped at session expiry", exp)
	}
}

func TestPasetoV4_OtherKeyRejected(t *testing.T) {
	t.Parallel()

	a, _ := NewPasetoV4PublicManager(testConfig(t))
	b, _ := NewPasetoV4PublicManager(testConfig(t))
	now := time.Now().UTC()
	tok, _, _ := a.Issue("u", "s", now, time.Time{})
	if _, err := b.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewPasetoV4PublicManager_BadKey(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PasetoV4SecretKeyHex = "zz"
	if _, err := NewPasetoV4PublicManager(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

// runSessionSuite exercises Service against store; newUser returns a user id
// the store accepts.
func runSessionSuite(t *testing.T, store Store, newUser func(t *testing.T) string) {
	ctx := context.Background()
	svc := newTestService(t, store)
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("issue and validate", func(t *testing.T) {
		userID := newUser(t)
		issued, err := svc.IssueSession(ctx, now, userID, DeviceContext{UserAgent: "lib-test/1.0"})
		if err != nil {
			t.Fatalf("IssueSession: %v", err)
		}
		claims, err := svc.ValidateAccessToken(ctx, issued.AccessToken, now.Add(time.Second))
		if err != nil {
			t.Fatalf("ValidateAccessToken: %v", err)
		}
		if claims.UserID != userID || claims.SessionID != issued.SessionID {
			t.Fatalf("claims mismatch: %+v", claims)
		}
	})

	t.Run("logout revokes", func(t *testing.T) {
		userID := newUser(t)
		issued, err := svc.IssueSession(ctx, now, userID, DeviceContext{})
		if err != nil {
			t.Fatalf("IssueSession: %v", err)
		}
		if err := svc.RevokeSession(ctx, now, issued.SessionID); err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
		if err := svc.RevokeSession(ctx, now.Add(time.Minute), issued.SessionID); err != nil {
			t.Fatalf("second RevokeSession: %v", err)
		}
		if _, err := svc.ValidateAccessToken(ctx, issued.AccessToken, now); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
		row, err := store.GetByID(ctx, issued.SessionID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if row.RevokeReason == nil || *row.RevokeReason != "logout" {
			t.Fatalf("expected reason logout, got %v", row.RevokeReason)
		}
		if row.RevokedAt == nil || !row.RevokedAt.Equal(now) {
			t.Fatalf("expected first revocation time to stick, got %v", row.RevokedAt)
		}
	})

	t.Run("revoke all", func(t *testing.T) {
		userID := newUser(t)
		a, _ := svc.IssueSession(ctx, now, userID, DeviceContext{})
		b, _ := svc.IssueSession(ctx, now, userID, DeviceContext{})
		other, _ := svc.IssueSession(ctx, now, newUser(t), DeviceContext{})

		if err := svc.RevokeAll(ctx, now, userID, "password_change"); err != nil {
			t.Fatalf("RevokeAll: %v", err)
		}
		for _, iss := range []Issued{a, b} {
			if _, err := svc.ValidateAccessToken(ctx, iss.AccessToken, now); !errors.Is(err, ErrSessionRevoked) {
				t.Fatalf("expected revoked, got %v", err)
			}
		}
		if _, err := svc.ValidateAccessToken(ctx, other.AccessToken, now); err != nil {
			t.Fatalf("other user's session affected: %v", err)
		}
	})

	t.Run("visits count per session", func(t *testing.T) {
		issued, err := svc.IssueSession(ctx, now, newUser(t), DeviceContext{})
		if err != nil {
			t.Fatalf("IssueSession: %v", err)
		}
		for want := range 3 {
			got, err := svc.Visit(ctx, now, issued.SessionID)
			if err != nil {
				t.Fatalf("Visit: %v", err)
			}
			if got != want {
				t.Fatalf("visit %d returned %d", want, got)
			}
		}
		if _, err := svc.Visit(ctx, now, "01HXXXXXXXXXXXXXXXXXXXXXXX"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("unknown session is invalid", func(t *testing.T) {
		tokens, _ := NewPasetoV4PublicManager(svc.cfg)
		tok, _, _ := tokens.Issue(newUser(t), "01HXXXXXXXXXXXXXXXXXXXXXXX", now, time.Time{})
		if _, err := svc.ValidateAccessToken(ctx, tok, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
		if _, err := svc.ValidateAccessToken(ctx, "  ", now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for blank, got %v", err)
		}
	})
}

func TestService_Memory(t *testing.T) {
	t.Parallel()

	n := 0
	runSessionSuite(t, NewMemoryStore(), func(t *testing.T) string {
		n++
		return "user-" + string(rune('a'+n))
	})
}
