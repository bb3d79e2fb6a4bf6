package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "CHANGE_SOURCE", "CHANGE_POLL_INTERVAL", "REFETCH_DEBOUNCE", "GIN_MODE", "NATS_SUBJECT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, ChangeSourceOutbox, cfg.ChangeSource)
	assert.Equal(t, 500*time.Millisecond, cfg.ChangePollInterval)
	assert.Equal(t, 150*time.Millisecond, cfg.RefetchDebounce)
	assert.Equal(t, "cafein.changes", cfg.NATSSubject)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("CHANGE_SOURCE", "pg_notify")
	t.Setenv("REFETCH_DEBOUNCE", "0s")
	t.Setenv("CHANGE_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, ChangeSourcePGNotify, cfg.ChangeSource)
	assert.Equal(t, time.Duration(0), cfg.RefetchDebounce)
	assert.Equal(t, 2*time.Second, cfg.ChangePollInterval)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("REFETCH_DEBOUNCE", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBDriver:           DriverSQLite,
			ChangeSource:       ChangeSourceOutbox,
			ChangePollInterval: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"unknown change source", func(c *Config) { c.ChangeSource = "kafka" }, true},
		{"pg_notify without postgres", func(c *Config) { c.ChangeSource = ChangeSourcePGNotify }, true},
		{"pg_notify with postgres", func(c *Config) {
			c.ChangeSource = ChangeSourcePGNotify
			c.DBDriver = DriverPostgres
		}, false},
		{"release without secret", func(c *Config) { c.GinMode = "release" }, true},
		{"zero poll interval", func(c *Config) { c.ChangePollInterval = 0 }, true},
		{"negative debounce", func(c *Config) { c.RefetchDebounce = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Equal(t, tt.wantErr, cfg.Validate() != nil)
		})
	}
}

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(&Config{DBDriver: DriverSQLite, DatabaseURL: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
