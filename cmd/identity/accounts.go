package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"locallibrary/cmd/internal/mail"
	"locallibrary/cmd/security/password"
	"locallibrary/cmd/security/token"
)

// Group names seeded by the schema.
const (
	GroupMembers    = "Library Members"
	GroupLibrarians = "Librarians"
)

// User-facing messages of the verification handshake and login.
const (
	SignupSubject   = "New Member Signup: Email confirmation."
	SignupMessage   = "Sign Up Successful! Please verify your Email before login."
	VerifiedMessage = "Email Verified Sucessfully!"
	MismatchMessage = "Verification Failed. Invalid Token recieved for the member."
	InactiveMessage = "Please verify your Email ID before Login."
	BadLoginMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	ProfileMessage  = "Profile Updated Successfully!"
)

const defaultMailAfter = 10 * time.Second

// Accounts runs signup, verification, login checks and profile edits.
type Accounts struct {
	store    Store
	pw       password.Config
	tokens   token.Hasher
	mailer   mail.Sender
	from     string
	mailWait time.Duration
	now      func() time.Time
	log      *slog.Logger
	validate *validator.Validate
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts) error

func WithPasswordConfig(cfg password.Config) AccountsOption {
	return func(a *Accounts) error {
		a.pw = cfg
		return nil
	}
}

func WithTokenHasher(h token.Hasher) AccountsOption {
	return func(a *Accounts) error {
		a.tokens = h
		return nil
	}
}

// WithMailer sets the sender of verification emails and the time a single
// hand-off may take.
func WithMailer(s mail.Sender, timeout time.Duration) AccountsOption {
	return func(a *Accounts) error {
		if s == nil {
			return errors.New("identity: nil mail sender")
		}
		if timeout <= 0 {
			timeout = defaultMailAfter
		}
		a.mailer = s
		a.mailWait = timeout
		return nil
	}
}

func WithMailFrom(from string) AccountsOption {
	return func(a *Accounts) error {
		from = strings.TrimSpace(from)
		if from == "" {
			return errors.New("identity: empty mail sender address")
		}
		a.from = from
		return nil
	}
}

func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *Accounts) error {
		if now == nil {
			return errors.New("identity: nil clock")
		}
		a.now = now
		return nil
	}
}

func WithAccountsLogger(log *slog.Logger) AccountsOption {
	return func(a *Accounts) error {
		if log != nil {
			a.log = log
		}
		return nil
	}
}

// NewAccounts wires the service. Without options it hashes with
// password.DefaultConfig, digests tokens with plain SHA-256 and logs mail.
func NewAccounts(store Store, opts ...AccountsOption) (*Accounts, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	a := &Accounts{
		store:    store,
		pw:       password.DefaultConfig(),
		from:     mail.DefaultFrom,
		mailWait: defaultMailAfter,
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.mailer == nil {
		a.mailer = mail.NewLogSender(a.log)
	}
	return a, nil
}

// SignupInput is the member registration form.
type SignupInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password1 string `json:"password1" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// Signup creates an inactive member with a verification token and emails the
// link <site>/accounts/<uid>/verify/<token>. A failed hand-off to the mail
// sender is logged; the account still exists.
func (a *Accounts) Signup(ctx context.Context, site string, in SignupInput) (User, error) {
	const op = "identity.Signup"

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := a.validate.StructCtx(ctx, in); err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: describe(err)}
	}
	if in.Password1 != in.Password2 {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "The two password fields didn't match."}
	}

	hash, err := a.pw.Hash(in.Password1, in.Username, in.Email)
	if err != nil {
		if password.IsPolicy(err) {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: capitalize(err.Error()) + "."}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	plain, digest, err := NewVerificationToken(a.tokens)
	if err != nil {
		return User{}, fmt.Errorf("%s: token: %w", op, err)
	}

	u, err := a.store.CreateUser(ctx, CreateUserInput{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       false,
		Groups:       []string{GroupMembers},
		TokenHash:    digest,
		Now:          a.now(),
	})
	if err != nil {
		return User{}, err
	}

	a.sendVerification(ctx, site, u, plain)
	return u, nil
}

// VerifyLink is the path of the verification handshake for uid and tok.
func VerifyLink(site, uid, tok string) string {
	return strings.TrimRight(site, "/") + "/accounts/" + uid + "/verify/" + tok
}

func (a *Accounts) sendVerification(ctx context.Context, site string, u User, plain string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.mailWait)
	defer cancel()

	msg := mail.Message{
		From:    a.from,
		To:      []string{u.Email},
		Subject: SignupSubject,
		Body: "Welcome " + u.Username + ", please click the link below to confirm your email address.\n" +
			VerifyLink(site, u.ID, plain),
	}
	if err := a.mailer.Send(ctx, msg); err != nil {
		a.log.WarnContext(ctx, "identity.signup.mail_failed", "user_id", u.ID, "err", err)
		return
	}
	a.log.InfoContext(ctx, "identity.signup.mail_sent", "user_id", u.ID)
}

// Verify activates uid when tok matches its stored token. A mismatch leaves
// the account untouched.
func (a *Accounts) Verify(ctx context.Context, uid, tok string) (User, error) {
	const op = "identity.Verify"

	u, err := a.store.GetUser(ctx, uid)
	if err != nil {
		return User{}, err
	}
	stored, err := a.store.TokenHash(ctx, uid)
	if err != nil && !IsNotFound(err) {
		return User{}, err
	}
	if stored == "" || !a.tokens.Matches(stored, strings.TrimSpace(tok)) {
		a.log.InfoContext(ctx, "identity.verify.mismatch", "user_id", uid)
		return User{}, OpError{Op: op, Kind: ErrTokenMismatch, Msg: MismatchMessage}
	}
	if !u.Active {
		if err := a.store.Activate(ctx, uid); err != nil {
			return User{}, err
		}
		u.Active = true
	}
	a.log.InfoContext(ctx, "identity.verify.ok", "user_id", uid)
	return u, nil
}

// Authenticate checks credentials. Inactive accounts are refused with
// ErrNotActive only after the password matched.
func (a *Accounts) Authenticate(ctx context.Context, username, pw string) (User, error) {
	const op = "identity.Authenticate"

	bad := OpError{Op: op, Kind: ErrInvalidCredentials, Msg: BadLoginMessage}
	if strings.TrimSpace(username) == "" || pw == "" {
		return User{}, bad
	}

	u, hash, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return User{}, bad
		}
		return User{}, err
	}
	ok, err := a.pw.Verify(hash, pw)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			a.log.WarnContext(ctx, "identity.login.bad_hash", "user_id", u.ID)
			return User{}, bad
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return User{}, bad
	}
	if !u.Active {
		return User{}, OpError{Op: op, Kind: ErrNotActive, Msg: InactiveMessage}
	}
	return u, nil
}

// Get returns a user by id.
func (a *Accounts) Get(ctx context.Context, id string) (User, error) {
	return a.store.GetUser(ctx, id)
}

// ProfileUpdate is the editable profile form.
type ProfileUpdate struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

func (a *Accounts) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (User, error) {
	const op = "identity.UpdateProfile"

	in.Username = strings.TrimSpace(in.Username)
	if err := a.validate.StructCtx(ctx, in); err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: describe(err)}
	}
	return a.store.UpdateProfile(ctx, id, ProfileInput{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	})
}

// NewUser is an account provisioned by an administrator.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	Librarian bool
	Active    bool
}

// CreateUser provisions an account without the email handshake.
func (a *Accounts) CreateUser(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.CreateUser"

	if strings.TrimSpace(in.Username) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	hash, err := a.pw.Hash(in.Password, in.Username, in.Email)
	if err != nil {
		if password.IsPolicy(err) {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	groups := []string{GroupMembers}
	if in.Librarian {
		groups = append(groups, GroupLibrarians)
	}
	return a.store.CreateUser(ctx, CreateUserInput{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       in.Active,
		Groups:       groups,
		Now:          a.now(),
	})
}

// Promote adds the user to the Librarians group.
func (a *Accounts) Promote(ctx context.Context, username string) (User, error) {
	return a.grant(ctx, username, func(id string) error {
		return a.store.AddToGroup(ctx, id, GroupLibrarians)
	})
}

// Grant gives the user a direct permission.
func (a *Accounts) Grant(ctx context.Context, username, perm string) (User, error) {
	perm = strings.TrimSpace(perm)
	if perm == "" {
		return User{}, OpError{Op: "identity.Grant", Kind: ErrInvalidInput, Msg: "permission is required"}
	}
	return a.grant(ctx, username, func(id string) error {
		return a.store.GrantPermission(ctx, id, perm)
	})
}

func (a *Accounts) grant(ctx context.Context, username string, apply func(id string) error) (User, error) {
	u, _, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if err := apply(u.ID); err != nil {
		return User{}, err
	}
	return a.store.GetUser(ctx, u.ID)
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+": This field is required.")
		case "email":
			msgs = append(msgs, field+": Enter a valid email address.")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: Ensure this value has at most %s characters.", field, fe.Param()))
		default:
			msgs = append(msgs, field+": invalid value")
		}
	}
	return strings.Join(msgs, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
