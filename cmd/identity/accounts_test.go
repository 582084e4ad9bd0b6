package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locallibrary/cmd/internal/mail"
	"locallibrary/cmd/security/password"
	"locallibrary/cmd/security/token"
)

const site = "http://library.test"

func cheapPasswords() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func newAccounts(t *testing.T, store Store, outbox *mail.Outbox) *Accounts {
	t.Helper()
	a, err := NewAccounts(store,
		WithPasswordConfig(cheapPasswords()),
		WithTokenHasher(token.NewHasher([]byte("0123456789abcdef0123456789abcdef"))),
		WithMailer(outbox, time.Second),
		WithAccountsClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return a
}

func signupInput(username string) SignupInput {
	return SignupInput{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "borrowed-time-42",
		Password2: "borrowed-time-42",
	}
}

// tokenFrom extracts the token from the link in a verification mail.
func tokenFrom(t *testing.T, m mail.Message, uid string) string {
	t.Helper()
	marker := "/accounts/" + uid + "/verify/"
	i := strings.Index(m.Body, marker)
	require.GreaterOrEqual(t, i, 0, "verification link missing from %q", m.Body)
	return strings.TrimSpace(m.Body[i+len(marker):])
}

func runAccountsSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("signup creates inactive member and mails the link", func(t *testing.T) {
		outbox := &mail.Outbox{}
		a := newAccounts(t, newStore(t), outbox)

		u, err := a.Signup(ctx, site+"/", signupInput("reader"))
		require.NoError(t, err)
		assert.False(t, u.Active)
		assert.Equal(t, []string{GroupMembers}, u.Groups)
		assert.Empty(t, u.Permissions)

		msgs := outbox.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, mail.DefaultFrom, msgs[0].From)
		assert.Equal(t, []string{"reader@example.com"}, msgs[0].To)
		assert.Equal(t, SignupSubject, msgs[0].Subject)
		assert.Contains(t, msgs[0].Body, "Welcome reader")
		assert.Contains(t, msgs[0].Body, site+"/accounts/"+u.ID+"/verify/")
	})

	t.Run("verify handshake gates login", func(t *testing.T) {
		outbox := &mail.Outbox{}
		a := newAccounts(t, newStore(t), outbox)

		u, err := a.Signup(ctx, site, signupInput("member"))
		require.NoError(t, err)
		tok := tokenFrom(t, outbox.Messages()[0], u.ID)

		_, err = a.Authenticate(ctx, "member", "borrowed-time-42")
		require.Error(t, err)
		assert.True(t, IsNotActive(err))
		assert.Equal(t, InactiveMessage, Message(err))

		_, err = a.Verify(ctx, u.ID, "not-the-token")
		require.Error(t, err)
		assert.True(t, IsTokenMismatch(err))
		assert.Equal(t, MismatchMessage, Message(err))
		still, err := a.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, still.Active)

		verified, err := a.Verify(ctx, u.ID, tok)
		require.NoError(t, err)
		assert.True(t, verified.Active)

		got, err := a.Authenticate(ctx, "MEMBER", "borrowed-time-42")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = a.Authenticate(ctx, "member", "wrong-password-1")
		assert.True(t, IsInvalidCredentials(err))
		_, err = a.Authenticate(ctx, "nobody", "borrowed-time-42")
		assert.True(t, IsInvalidCredentials(err))
	})

	t.Run("verify unknown user is not found", func(t *testing.T) {
		a := newAccounts(t, newStore(t), &mail.Outbox{})
		id, err := NewULID(time.Now())
		require.NoError(t, err)

		_, err = a.Verify(ctx, id, "whatever")
		assert.True(t, IsNotFound(err))
	})

	t.Run("token of another member does not verify", func(t *testing.T) {
		outbox := &mail.Outbox{}
		a := newAccounts(t, newStore(t), outbox)

		first, err := a.Signup(ctx, site, signupInput("first"))
		require.NoError(t, err)
		second, err := a.Signup(ctx, site, signupInput("second"))
		require.NoError(t, err)
		firstTok := tokenFrom(t, outbox.Messages()[0], first.ID)

		_, err = a.Verify(ctx, second.ID, firstTok)
		assert.True(t, IsTokenMismatch(err))
	})

	t.Run("signup rejects duplicates and bad passwords", func(t *testing.T) {
		a := newAccounts(t, newStore(t), &mail.Outbox{})
		_, err := a.Signup(ctx, site, signupInput("taken"))
		require.NoError(t, err)

		_, err = a.Signup(ctx, site, signupInput("TAKEN"))
		require.Error(t, err)
		assert.True(t, IsConflict(err))
		assert.Equal(t, "A user with that username already exists.", Message(err))

		cases := map[string]SignupInput{
			"mismatch": {Username: "x1", Email: "x1@example.com", Password1: "borrowed-time-42", Password2: "borrowed-time-43"},
			"common":   {Username: "x2", Email: "x2@example.com", Password1: "password123", Password2: "password123"},
			"numeric":  {Username: "x3", Email: "x3@example.com", Password1: "90817263", Password2: "90817263"},
			"short":    {Username: "x4", Email: "x4@example.com", Password1: "ab1", Password2: "ab1"},
			"email":    {Username: "x5", Email: "not-an-email", Password1: "borrowed-time-42", Password2: "borrowed-time-42"},
			"username": {Username: " ", Email: "x6@example.com", Password1: "borrowed-time-42", Password2: "borrowed-time-42"},
		}
		for name, in := range cases {
			_, err := a.Signup(ctx, site, in)
			assert.Truef(t, IsInvalidInput(err), "%s: got %v", name, err)
			assert.NotEmptyf(t, Message(err), "%s", name)
		}
	})

	t.Run("mail failure does not undo signup", func(t *testing.T) {
		outbox := &mail.Outbox{Err: errors.New("smtp down")}
		a := newAccounts(t, newStore(t), outbox)

		u, err := a.Signup(ctx, site, signupInput("offline"))
		require.NoError(t, err)
		assert.Len(t, outbox.Messages(), 1)

		got, err := a.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "offline", got.Username)
	})

	t.Run("profile update", func(t *testing.T) {
		a := newAccounts(t, newStore(t), &mail.Outbox{})
		u, err := a.Signup(ctx, site, signupInput("alice"))
		require.NoError(t, err)
		_, err = a.Signup(ctx, site, signupInput("bob"))
		require.NoError(t, err)

		got, err := a.UpdateProfile(ctx, u.ID, ProfileUpdate{
			Username:  "alice",
			Email:     "alice@Library.Test",
			FirstName: " Alice ",
			LastName:  "Liddell",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@library.test", got.Email)
		assert.Equal(t, "Alice Liddell", got.FullName())

		_, err = a.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: "Bob"})
		assert.True(t, IsConflict(err))

		renamed, err := a.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: "alice2"})
		require.NoError(t, err)
		assert.Equal(t, "alice2", renamed.Username)
		_, _, err = a.store.GetUserByUsername(ctx, "alice")
		assert.True(t, IsNotFound(err))

		_, err = a.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: ""})
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("librarian provisioning", func(t *testing.T) {
		a := newAccounts(t, newStore(t), &mail.Outbox{})

		lib, err := a.CreateUser(ctx, NewUser{Username: "head", Email: "head@example.com", Password: "borrowed-time-42", Librarian: true, Active: true})
		require.NoError(t, err)
		assert.Equal(t, []string{GroupLibrarians, GroupMembers}, lib.Groups)
		assert.Equal(t, []string{"catalog.can_mark_returned"}, lib.Permissions)

		_, err = a.Authenticate(ctx, "head", "borrowed-time-42")
		require.NoError(t, err)

		_, err = a.CreateUser(ctx, NewUser{Username: "clerk", Email: "clerk@example.com", Password: "borrowed-time-42", Active: true})
		require.NoError(t, err)
		promoted, err := a.Promote(ctx, "clerk")
		require.NoError(t, err)
		assert.Contains(t, promoted.Groups, GroupLibrarians)
		assert.Contains(t, promoted.Permissions, "catalog.can_mark_returned")

		granted, err := a.Grant(ctx, "clerk", "catalog.can_edit")
		require.NoError(t, err)
		assert.Equal(t, []string{"catalog.can_edit", "catalog.can_mark_returned"}, granted.Permissions)

		_, err = a.Promote(ctx, "ghost")
		assert.True(t, IsNotFound(err))
	})
}

func TestAccounts_Memory(t *testing.T) {
	t.Parallel()
	runAccountsSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestVerifyLink(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "http://h/accounts/U/verify/T", VerifyLink("http://h/", "U", "T"))
}

func TestUserFullName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "reader", User{Username: "reader"}.FullName())
	assert.Equal(t, "Ada", User{Username: "a", FirstName: "Ada"}.FullName())
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
}
