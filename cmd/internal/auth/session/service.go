package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service issues, validates and revokes login sessions.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store
}

// Issued is the result of a login.
type Issued struct {
	SessionID   string
	AccessToken string
	AccessExp   time.Time
	SessionExp  time.Time
}

// NewService constructs a Service with the provided configuration, store, and token manager.
func NewService(cfg Config, store Store, tokens AccessTokenManager) *Service {
	return &Service{cfg: cfg, store: store, tokens: tokens}
}

// IssueSession creates a session row and signs an access token for it.
func (s *Service) IssueSession(ctx context.Context, now time.Time, userID string, dev DeviceContext) (Issued, error) {
	sessionExp := now.Add(s.cfg.SessionTTL)

	sessionID, err := s.store.Create(ctx, now, userID, dev, sessionExp)
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, sessionID, now, sessionExp)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:   sessionID,
		AccessToken: accessToken,
		AccessExp:   accessExp,
		SessionExp:  sessionExp,
	}, nil
}

// ValidateAccessToken verifies an access token and ensures the backing session is active.
func (s *Service) ValidateAccessToken(ctx context.Context, token string, now time.Time) (AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return AccessClaims{}, ErrInvalidToken
	}

	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return AccessClaims{}, err
	}

	// Server-authoritative session check to honor revocations.
	row, err := s.store.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrInvalidToken
		}
		return AccessClaims{}, err
	}

	if row.UserID != claims.UserID {
		return AccessClaims{}, ErrInvalidToken
	}
	if row.RevokedAt != nil {
		return AccessClaims{}, ErrSessionRevoked
	}
	if !row.ExpiresAt.After(now) {
		return AccessClaims{}, ErrSessionExpired
	}

	return claims, nil
}

// RevokeSession revokes a single session (logout).
func (s *Service) RevokeSession(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Revoke(ctx, now, sessionID, "logout")
}

// RevokeAll revokes all sessions for a user.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	return s.store.RevokeAll(ctx, now, userID, reason)
}

// Visit counts a home page visit and returns the count before it.
func (s *Service) Visit(ctx context.Context, now time.Time, sessionID string) (int, error) {
	return s.store.Visit(ctx, now, sessionID)
}
