package identity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for dev mode and tests. It is seeded
// with the same groups as the SQL schema.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]memUser
	byUsername map[string]string
	groupPerms map[string][]string
}

type memUser struct {
	User
	passwordHash string
	tokenHash    string
	directPerms  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]memUser),
		byUsername: make(map[string]string),
		groupPerms: map[string][]string{
			"Librarians":      {"catalog.can_mark_returned"},
			"Library Members": nil,
		},
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := NormalizeUsername(in.Username)
	if _, taken := s.byUsername[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if in.TokenHash != "" {
		for _, u := range s.users {
			if u.tokenHash == in.TokenHash {
				return User{}, ConflictError{Op: op, Field: "token"}
			}
		}
	}
	for _, g := range in.Groups {
		if _, ok := s.groupPerms[g]; !ok {
			return User{}, NotFoundError{Op: op, Resource: "group"}
		}
	}

	u := memUser{
		User: User{
			ID:        id,
			Username:  strings.TrimSpace(in.Username),
			Email:     NormalizeEmail(in.Email),
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Active:    in.Active,
			CreatedAt: now,
			Groups:    uniqueSorted(in.Groups),
		},
		passwordHash: in.PasswordHash,
		tokenHash:    in.TokenHash,
	}
	s.users[id] = u
	s.byUsername[norm] = id
	return s.view(u), nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUser", Resource: "user"}
	}
	return s.view(u), nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, string, error) {
	if err := ctx.Err(); err != nil {
		return User{}, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return User{}, "", NotFoundError{Op: "identity.GetUserByUsername", Resource: "user"}
	}
	u := s.users[id]
	return s.view(u), u.passwordHash, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, in ProfileInput) (User, error) {
	const op = "identity.UpdateProfile"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	norm := NormalizeUsername(in.Username)
	if owner, taken := s.byUsername[norm]; taken && owner != id {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	delete(s.byUsername, NormalizeUsername(u.Username))
	s.byUsername[norm] = id
	u.Username = strings.TrimSpace(in.Username)
	u.Email = NormalizeEmail(in.Email)
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	s.users[id] = u
	return s.view(u), nil
}

func (s *MemoryStore) TokenHash(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok || u.tokenHash == "" {
		return "", NotFoundError{Op: "identity.TokenHash", Resource: "token"}
	}
	return u.tokenHash, nil
}

func (s *MemoryStore) Activate(ctx context.Context, userID string) error {
	return s.mutate(ctx, "identity.Activate", userID, func(u *memUser) error {
		u.Active = true
		return nil
	})
}

func (s *MemoryStore) AddToGroup(ctx context.Context, userID, group string) error {
	const op = "identity.AddToGroup"
	return s.mutate(ctx, op, userID, func(u *memUser) error {
		if _, ok := s.groupPerms[group]; !ok {
			return NotFoundError{Op: op, Resource: "group"}
		}
		u.Groups = uniqueSorted(append(u.Groups, group))
		return nil
	})
}

func (s *MemoryStore) GrantPermission(ctx context.Context, userID, perm string) error {
	return s.mutate(ctx, "identity.GrantPermission", userID, func(u *memUser) error {
		u.directPerms = uniqueSorted(append(u.directPerms, perm))
		return nil
	})
}

func (s *MemoryStore) mutate(ctx context.Context, op, userID string, fn func(*memUser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if err := fn(&u); err != nil {
		return err
	}
	s.users[userID] = u
	return nil
}

// view copies u with effective permissions. Caller holds s.mu.
func (s *MemoryStore) view(u memUser) User {
	out := u.User
	out.Groups = slices.Clone(u.Groups)
	perms := slices.Clone(u.directPerms)
	for _, g := range u.Groups {
		perms = append(perms, s.groupPerms[g]...)
	}
	out.Permissions = uniqueSorted(perms)
	return out
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
