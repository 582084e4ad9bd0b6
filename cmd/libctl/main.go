// Command libctl administers a locallibrary database: it applies the schema
// and provisions staff accounts without the email handshake.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/internal/app"
	"locallibrary/cmd/internal/schema"
	"locallibrary/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := app.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "libctl:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(newPostgresEnv()).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

// env is what the commands need from the outside world.
type env struct {
	// migrate applies the schema to the configured database.
	migrate func(ctx context.Context, dsn, schemaName string) error
	// accounts opens the identity service; close releases it.
	accounts func(ctx context.Context, dsn, schemaName string) (acc *identity.Accounts, close func(), err error)
	// readPassword prompts when --password is absent.
	readPassword func(prompt string) (string, error)
	stdout       io.Writer
}

func newPostgresEnv() env {
	return env{
		migrate: func(ctx context.Context, dsn, schemaName string) error {
			pool, err := openPool(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()
			return schema.Apply(ctx, pool, schemaName)
		},
		accounts: func(ctx context.Context, dsn, schemaName string) (*identity.Accounts, func(), error) {
			pool, err := openPool(ctx, dsn)
			if err != nil {
				return nil, nil, err
			}
			st, err := identity.NewPostgresStore(pool, identity.WithSchema(schemaName))
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			pw, err := password.FromEnv()
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			acc, err := identity.NewAccounts(st, identity.WithPasswordConfig(pw))
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			return acc, pool.Close, nil
		},
		readPassword: readPassword,
		stdout:       os.Stdout,
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("no database: set LOCALLIBRARY_DATABASE_URL or --database-url")
	}
	cfg := app.LoadConfig()
	cfg.DatabaseURL = dsn
	cfg.DBAutoMigrate = false
	return app.NewDBPool(ctx, cfg)
}
