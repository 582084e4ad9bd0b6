// Package schema owns the PostgreSQL DDL of locallibrary and applies it.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Default is the schema used when none is configured.
const Default = "locallibrary"

//go:embed schema.sql
var ddl string

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ValidName reports whether name is a plain PostgreSQL identifier.
func ValidName(name string) bool { return identRe.MatchString(name) }

// SQL renders the DDL for schema.
func SQL(schema string) (string, error) {
	schema = strings.TrimSpace(schema)
	if !ValidName(schema) {
		return "", fmt.Errorf("schema: invalid identifier %q", schema)
	}
	return strings.ReplaceAll(ddl, "{{schema}}", pgx.Identifier{schema}.Sanitize()), nil
}

// Apply creates or completes the schema. It runs as one multi-statement Exec
// without arguments, which pgx sends over the simple protocol.
func Apply(ctx context.Context, db Execer, schema string) error {
	sql, err := SQL(schema)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("schema: apply %s: %w", schema, err)
	}
	return nil
}
