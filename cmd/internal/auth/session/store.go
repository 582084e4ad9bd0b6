package session

import (
	"context"
	"net"
	"time"
)

// DeviceContext describes the client that logged in.
type DeviceContext struct {
	UserAgent string
	IP        net.IP
}

// Row mirrors a sessions row.
type Row struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastUsedAt   *time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason *string
	Visits       int
}

// Active reports whether the row can back a request at now.
func (r Row) Active(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// Store abstracts persistence for session state.
type Store interface {
	// Create inserts a session row and returns its ULID.
	Create(ctx context.Context, now time.Time, userID string, dev DeviceContext, expiresAt time.Time) (sessionID string, err error)

	GetByID(ctx context.Context, sessionID string) (Row, error)

	// Visit increments the visit counter, updates last_used_at and returns
	// the count before this visit.
	Visit(ctx context.Context, now time.Time, sessionID string) (int, error)

	// Revoke revokes a single session. Revoking twice keeps the first reason.
	Revoke(ctx context.Context, now time.Time, sessionID string, reason string) error

	// RevokeAll revokes all sessions of a user.
	RevokeAll(ctx context.Context, now time.Time, userID string, reason string) error
}
