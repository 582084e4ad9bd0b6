// Package app wires the locallibrary server runtime: config, logging,
// metrics, persistence and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"locallibrary/cmd/identity"
	authapi "locallibrary/cmd/internal/auth/api"
	"locallibrary/cmd/internal/auth/session"
	"locallibrary/cmd/internal/catalog"
	catalogapi "locallibrary/cmd/internal/catalog/api"
	"locallibrary/cmd/internal/mail"
	"locallibrary/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// stores bundles the three persistence ports for one backend.
type stores struct {
	identity identity.Store
	sessions session.Store
	catalog  catalog.Store
}

// App is the server runtime: it owns the HTTP handler chain and the
// resources behind it.
type App struct {
	cfg Config
	log Logger

	store   Store
	dbPool  *pgxpool.Pool
	metrics *Metrics

	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	st, dbPool, ports, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, store: st, dbPool: dbPool}
	if err := a.wire(ports, loc); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ports stores, loc *time.Location) error {
	cfg, log := a.cfg, a.log

	hasher, sessCfg, err := loadSecrets(cfg, log)
	if err != nil {
		return err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return err
	}
	sender, err := newMailSender(cfg, log)
	if err != nil {
		return err
	}

	accounts, err := identity.NewAccounts(ports.identity,
		identity.WithPasswordConfig(pwCfg),
		identity.WithTokenHasher(hasher),
		identity.WithMailer(sender, cfg.MailTimeout),
		identity.WithMailFrom(cfg.MailFrom),
		identity.WithAccountsLogger(log),
	)
	if err != nil {
		return err
	}

	tokens, err := session.NewPasetoV4PublicManager(sessCfg)
	if err != nil {
		return err
	}
	sessions := session.NewService(sessCfg, ports.sessions, tokens)

	if cfg.MetricsEnabled {
		a.metrics = NewMetrics()
	}
	catalogOpts := []catalog.Option{
		catalog.WithLocation(loc),
		catalog.WithLogger(log),
		catalog.WithFineNotice(cfg.FineNotice),
	}
	if a.metrics != nil {
		catalogOpts = append(catalogOpts, catalog.WithRecorder(a.metrics))
	}
	svc, err := catalog.NewService(ports.catalog, catalogOpts...)
	if err != nil {
		return err
	}

	authHandler, err := authapi.NewHandler(log, accounts, sessions, authapi.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	catalogHandler, err := catalogapi.NewHandler(log, svc, catalogapi.DefaultConfig(),
		catalogapi.WithVisitCounter(authHandler.CountVisit))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, a.dbPool, a.metrics, authHandler, catalogHandler)

	// Outermost first: headers, request log, caller resolution, metrics, mux.
	var h http.Handler = WithMetrics(mux, a.metrics)
	h = authHandler.Authenticate(h)
	h = WithRequestLogging(h, log)
	a.handler = WithSecurityHeaders(h)
	return nil
}

// Handler returns the complete HTTP handler chain.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases the store resources.
func (a *App) Close(ctx context.Context) error { return a.store.Close(ctx) }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil, "metrics", a.metrics != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and in-memory dev stores.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, stores{
			identity: identity.NewMemoryStore(),
			sessions: session.NewMemoryStore(),
			catalog:  catalog.NewMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, stores{}, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema, "auto_migrate", cfg.DBAutoMigrate)

	// The app owns the pool; the stores never close it.
	ids, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, stores{}, err
	}
	sess, err := session.NewPostgresStore(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, nil, stores{}, err
	}
	cat, err := catalog.NewPostgresStore(pool, catalog.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, stores{}, err
	}

	return dbStore{pool: pool}, pool, stores{identity: ids, sessions: sess, catalog: cat}, nil
}

func newMailSender(cfg Config, log Logger) (mail.Sender, error) {
	if cfg.SMTPAddr == "" {
		return mail.NewLogSender(log), nil
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		Timeout:  cfg.MailTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("mail.smtp.enabled", "addr", cfg.SMTPAddr)
	return s, nil
}
