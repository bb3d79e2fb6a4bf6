package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ChangeSourceOutbox   = "outbox"
	ChangeSourcePGNotify = "pg_notify"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver    string
	DatabaseURL string

	JWTSecret  string
	TokenTTL   time.Duration
	CORSOrigin string

	ChangeSource       string
	ChangePollInterval time.Duration
	RefetchDebounce    time.Duration
	PGNotifyChannel    string

	NATSURL     string
	NATSSubject string

	MidtransServerKey string
	MidtransEnv       string

	AdminEmail    string
	AdminPassword string
}

// Load reads .env when present and builds the configuration from the
// environment. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		DatabaseURL: getEnv("DATABASE_URL", "root:@tcp(127.0.0.1:3306)/cafein?charset=utf8mb4&parseTime=True&loc=Local"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		ChangeSource:    strings.ToLower(getEnv("CHANGE_SOURCE", ChangeSourceOutbox)),
		PGNotifyChannel: getEnv("PG_NOTIFY_CHANNEL", "orders_changes"),

		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getEnv("NATS_SUBJECT", "cafein.changes"),

		MidtransServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransEnv:       getEnv("MIDTRANS_ENV", "sandbox"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ChangePollInterval, err = getDuration("CHANGE_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RefetchDebounce, err = getDuration("REFETCH_DEBOUNCE", 150*time.Millisecond); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.ChangeSource {
	case ChangeSourceOutbox:
	case ChangeSourcePGNotify:
		if c.DBDriver != DriverPostgres {
			return fmt.Errorf("CHANGE_SOURCE=%s requires DB_DRIVER=%s", ChangeSourcePGNotify, DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported CHANGE_SOURCE %q", c.ChangeSource)
	}

	if c.GinMode == "release" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if c.ChangePollInterval <= 0 {
		return fmt.Errorf("CHANGE_POLL_INTERVAL must be positive")
	}
	if c.RefetchDebounce < 0 {
		return fmt.Errorf("REFETCH_DEBOUNCE must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
