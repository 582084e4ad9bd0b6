package app

import (
	"fmt"
	"time"
	_ "time/tzdata" // LOCALLIBRARY_TIMEZONE must resolve on minimal images.

	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/mail"
	"locallibrary/cmd/internal/schema"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	// Empty DatabaseURL runs every store in memory.
	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32
	// DBAutoMigrate applies the embedded schema at startup.
	DBAutoMigrate bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy: if true, LOCALLIBRARY_TOKEN_HMAC_KEY must be set and
	// LOCALLIBRARY_PASETO_V4_SECRET_KEY_HEX may not be generated on the fly.
	RequireSecrets bool

	TimeZone   string
	FineNotice string

	MailFrom    string
	MailTimeout time.Duration
	SMTPAddr    string
	SMTPUser    string
	SMTPPass    string

	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("LOCALLIBRARY_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("LOCALLIBRARY_LOG_LEVEL", "info"),
		LogFormat: EnvString("LOCALLIBRARY_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("LOCALLIBRARY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("LOCALLIBRARY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("LOCALLIBRARY_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("LOCALLIBRARY_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("LOCALLIBRARY_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("LOCALLIBRARY_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("LOCALLIBRARY_DATABASE_URL", ""),
		DBSchema:      EnvString("LOCALLIBRARY_DB_SCHEMA", schema.Default),
		DBMaxConns:    EnvInt32("LOCALLIBRARY_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("LOCALLIBRARY_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("LOCALLIBRARY_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("LOCALLIBRARY_READINESS_REQUIRE_DB", false),

		RequireSecrets: EnvBool("LOCALLIBRARY_REQUIRE_SECRETS", false),

		TimeZone:   EnvString("LOCALLIBRARY_TIMEZONE", "UTC"),
		FineNotice: EnvString("LOCALLIBRARY_FINE_NOTICE", catalog.DefaultFineNotice),

		MailFrom:    EnvString("LOCALLIBRARY_MAIL_FROM", mail.DefaultFrom),
		MailTimeout: EnvDuration("LOCALLIBRARY_MAIL_TIMEOUT", 10*time.Second),
		SMTPAddr:    EnvString("LOCALLIBRARY_SMTP_ADDR", ""),
		SMTPUser:    EnvString("LOCALLIBRARY_SMTP_USERNAME", ""),
		SMTPPass:    EnvString("LOCALLIBRARY_SMTP_PASSWORD", ""),

		MetricsEnabled: EnvBool("LOCALLIBRARY_METRICS_ENABLED", true),
	}
}

// Location resolves the library time zone.
func (c Config) Location() (*time.Location, error) {
	name := c.TimeZone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: LOCALLIBRARY_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Validate rejects settings that cannot start a server.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: empty http addr")
	}
	if !schema.ValidName(c.DBSchema) {
		return fmt.Errorf("config: invalid db schema %q", c.DBSchema)
	}
	if c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("config: db min conns %d exceeds max %d", c.DBMinConns, c.DBMaxConns)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
