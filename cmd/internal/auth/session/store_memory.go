package session

import (
	"context"
	"sync"
	"time"

	"locallibrary/cmd/identity/ids"
)

// MemoryStore keeps sessions in process memory. Used in dev mode and tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Row)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, now time.Time, userID string, _ DeviceContext, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = Row{
		ID:         id,
		UserID:     userID,
		CreatedAt:  now,
		LastUsedAt: &now,
		ExpiresAt:  expiresAt,
	}
	return id, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[sessionID]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return row, nil
}

func (s *MemoryStore) Visit(ctx context.Context, now time.Time, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	prev := row.Visits
	row.Visits++
	row.LastUsedAt = &now
	s.rows[sessionID] = row
	return prev, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, now time.Time, sessionID string, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[sessionID]; ok {
		s.rows[sessionID] = revoked(row, now, reason)
	}
	return nil
}

func (s *MemoryStore) RevokeAll(ctx context.Context, now time.Time, userID string, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, row := range s.rows {
		if row.UserID == userID {
			s.rows[id] = revoked(row, now, reason)
		}
	}
	return nil
}

func revoked(row Row, now time.Time, reason string) Row {
	if row.RevokedAt == nil {
		row.RevokedAt = &now
	}
	if row.RevokeReason == nil {
		row.RevokeReason = &reason
	}
	return row
}
