package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are quoted with pgx.Identifier.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "locallibrary").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "locallibrary",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

var _ Store = (*PostgresStore)(nil)

// CreateUser inserts the user, its token and its group memberships in one transaction.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, pgInvalid(op, "username is required")
	}
	if in.PasswordHash == "" {
		return User{}, pgInvalid(op, "password hash is required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.ident("users")+` (
		     id, username, username_norm, email, first_name, last_name, password_hash, is_active, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID,
		username,
		NormalizeUsername(username),
		NormalizeEmail(in.Email),
		in.FirstName,
		in.LastName,
		in.PasswordHash,
		in.Active,
		now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	if in.TokenHash != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.ident("user_tokens")+` (user_id, token_hash, created_at) VALUES ($1, $2, $3)`,
			userID, in.TokenHash, now,
		)
		if err != nil {
			if field, ok := pgClassifyUniqueViolation(err); ok {
				return User{}, ConflictError{Op: op, Field: field}
			}
			return User{}, err
		}
	}

	if len(in.Groups) > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.ident("user_groups")+` (user_id, group_name)
			 SELECT $1, unnest($2::text[])
			 ON CONFLICT DO NOTHING`,
			userID, in.Groups,
		)
		if err != nil {
			if pgIsForeignKeyViolation(err) {
				return User{}, NotFoundError{Op: op, Resource: "group"}
			}
			return User{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, userID)
}

const userCols = `u.id, u.username, u.email, u.first_name, u.last_name, u.is_active, u.created_at`

func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUser"

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM `+s.ident("users")+` u WHERE u.id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	if err := s.loadAccess(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, string, error) {
	const op = "identity.GetUserByUsername"

	var (
		u    User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+userCols+`, u.password_hash FROM `+s.ident("users")+` u WHERE u.username_norm = $1`,
		NormalizeUsername(username),
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Active, &u.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, "", err
	}
	if err := s.loadAccess(ctx, &u); err != nil {
		return User{}, "", err
	}
	return u, hash, nil
}

// loadAccess fills groups and the union of direct and group permissions.
func (s *PostgresStore) loadAccess(ctx context.Context, u *User) error {
	rows, err := s.pool.Query(ctx,
		`SELECT group_name FROM `+s.ident("user_groups")+` WHERE user_id = $1 ORDER BY group_name`, u.ID)
	if err != nil {
		return err
	}
	if u.Groups, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT permission FROM `+s.ident("user_permissions")+` WHERE user_id = $1
		 UNION
		 SELECT gp.permission
		   FROM `+s.ident("group_permissions")+` gp
		   JOIN `+s.ident("user_groups")+` ug ON ug.group_name = gp.group_name
		  WHERE ug.user_id = $1
		 ORDER BY 1`,
		u.ID,
	)
	if err != nil {
		return err
	}
	u.Permissions, err = pgx.CollectRows(rows, pgx.RowTo[string])
	return err
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, in ProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	username := strings.TrimSpace(in.Username)
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("users")+`
		    SET username = $2, username_norm = $3, email = $4, first_name = $5, last_name = $6
		  WHERE id = $1`,
		id, username, NormalizeUsername(username), NormalizeEmail(in.Email), in.FirstName, in.LastName,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	if ct.RowsAffected() == 0 {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.GetUser(ctx, id)
}

func (s *PostgresStore) TokenHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT token_hash FROM `+s.ident("user_tokens")+` WHERE user_id = $1`, userID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", NotFoundError{Op: "identity.TokenHash", Resource: "token"}
		}
		return "", err
	}
	return hash, nil
}

func (s *PostgresStore) Activate(ctx context.Context, userID string) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("users")+` SET is_active = true WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: "identity.Activate", Resource: "user"}
	}
	return nil
}

func (s *PostgresStore) AddToGroup(ctx context.Context, userID, group string) error {
	const op = "identity.AddToGroup"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.ident("user_groups")+` (user_id, group_name) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, group,
	)
	if err != nil && pgIsForeignKeyViolation(err) {
		return NotFoundError{Op: op, Resource: pgForeignKeyResource(err)}
	}
	return err
}

func (s *PostgresStore) GrantPermission(ctx context.Context, userID, perm string) error {
	const op = "identity.GrantPermission"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.ident("user_permissions")+` (user_id, permission) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, perm,
	)
	if err != nil && pgIsForeignKeyViolation(err) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return err
}

// ---- helpers ----

func (s *PostgresStore) ident(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
}

func pgForeignKeyResource(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "fk_user_groups_group" {
		return "group"
	}
	return "user"
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_username_norm":
		return "username", true
	case "uq_user_tokens_token_hash":
		return "token", true
	default:
		if strings.Contains(c, "username") {
			return "username", true
		}
		return "unknown", true
	}
}
