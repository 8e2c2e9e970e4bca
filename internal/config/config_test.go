package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "walletcore", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "walletcore", cfg.Database.Database)
	assert.Equal(t, "2000", cfg.Wallet.OneTimeLimitUSD)
	assert.Equal(t, "5000", cfg.Wallet.DailyLimitUSD)
	assert.Equal(t, time.Minute, cfg.Wallet.ReconciliationInterval)
	assert.Equal(t, 100, cfg.Wallet.ReconciliationBatch)
	assert.Equal(t, "1", cfg.Wallet.ExchangeRates["USD"])
	assert.True(t, cfg.NATS.Enabled)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("WALLETCORE_DATABASE_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("WALLETCORE_SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.App.IsProduction())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ReadsYamlFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9999
wallet:
  one_time_limit_usd: "500"
  daily_limit_usd: "1500"
log:
  level: warn
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir, "config")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "500", cfg.Wallet.OneTimeLimitUSD)
	assert.Equal(t, "1500", cfg.Wallet.DailyLimitUSD)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(cfg *Config) { cfg.Database.Host = "" },
			wantErr: "database host is required",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing ceilings",
			mutate:  func(cfg *Config) { cfg.Wallet.DailyLimitUSD = "" },
			wantErr: "transfer ceilings are required",
		},
		{
			name:    "zero reconciliation interval",
			mutate:  func(cfg *Config) { cfg.Wallet.ReconciliationInterval = 0 },
			wantErr: "reconciliation interval must be positive",
		},
		{
			name:    "zero reconciliation batch",
			mutate:  func(cfg *Config) { cfg.Wallet.ReconciliationBatch = 0 },
			wantErr: "reconciliation batch size must be positive",
		},
		{
			name:    "USD anchor rate tampered",
			mutate:  func(cfg *Config) { cfg.Wallet.ExchangeRates["USD"] = "1.05" },
			wantErr: "USD rate must be 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Development()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "wallet", Password: "secret",
		Database: "walletcore", SSLMode: "require",
	}
	assert.Equal(t, "postgres://wallet:secret@db:5432/walletcore?sslmode=require", cfg.DSN())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := Development()
	assert.True(t, dev.App.IsDevelopment())
	assert.False(t, dev.App.IsProduction())
	require.NoError(t, dev.Validate())

	test := Test()
	assert.Equal(t, "test", test.App.Environment)
	assert.Equal(t, "walletcore_test", test.Database.Database)
	require.NoError(t, test.Validate())
}
