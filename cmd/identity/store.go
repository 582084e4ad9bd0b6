package identity

import (
	"context"
	"time"
)

// User is a library member or librarian.
type User struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Active    bool
	CreatedAt time.Time

	Groups []string
	// Permissions is the union of direct and group permissions.
	Permissions []string
}

// FullName is "First Last", or the username when both names are empty.
func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// CreateUserInput is a fully prepared user row. The password is already
// hashed and the verification token already digested.
type CreateUserInput struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Active       bool
	Groups       []string
	// TokenHash, when set, creates the user's verification token in the same transaction.
	TokenHash string
	Now       time.Time
}

// ProfileInput is the editable part of a user.
type ProfileInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Store is the identity persistence boundary.
type Store interface {
	// CreateUser inserts the user, its group memberships and its token atomically.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	// GetUserByUsername matches case-insensitively and also returns the password hash.
	GetUserByUsername(ctx context.Context, username string) (User, string, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput) (User, error)
	// TokenHash returns the stored verification token digest of a user.
	TokenHash(ctx context.Context, userID string) (string, error)
	Activate(ctx context.Context, userID string) error
	AddToGroup(ctx context.Context, userID, group string) error
	GrantPermission(ctx context.Context, userID, perm string) error
}
