// Package config manages application configuration.
//
// Sources, in order of precedence:
// 1. Environment variables (WALLETCORE_ prefix)
// 2. Config file (yaml)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Log      LogConfig      `mapstructure:"log"`
}

// AppConfig describes the running application.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
}

// IsDevelopment reports whether the environment is development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the environment is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// NATSConfig configures the event publisher connection.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// WalletConfig carries the money-movement policy: transfer ceilings,
// the exchange rate table and the reconciliation schedule. Ceilings are
// expressed in USD and converted to the account currency at request time.
type WalletConfig struct {
	OneTimeLimitUSD        string            `mapstructure:"one_time_limit_usd"`
	DailyLimitUSD          string            `mapstructure:"daily_limit_usd"`
	ExchangeRates          map[string]string `mapstructure:"exchange_rates"` // units per 1 USD
	ReconciliationInterval time.Duration     `mapstructure:"reconciliation_interval"`
	ReconciliationBatch    int               `mapstructure:"reconciliation_batch"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads configuration from a file and environment variables.
//
// configPath is the directory holding the config file, configName the
// file name without extension. A missing file is not an error; defaults
// and environment variables still apply.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/walletcore")

	v.SetEnvPrefix("WALLETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("WALLETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "walletcore")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "walletcore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)

	// Wallet defaults
	v.SetDefault("wallet.one_time_limit_usd", "2000")
	v.SetDefault("wallet.daily_limit_usd", "5000")
	v.SetDefault("wallet.exchange_rates", map[string]string{
		"USD": "1",
		"EUR": "0.92",
		"GBP": "0.79",
		"JPY": "149.50",
		"VND": "24500",
		"AUD": "1.52",
		"CAD": "1.36",
	})
	v.SetDefault("wallet.reconciliation_interval", "1m")
	v.SetDefault("wallet.reconciliation_batch", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Database (usually passed through env in production)
	_ = v.BindEnv("database.host", "WALLETCORE_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "WALLETCORE_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "WALLETCORE_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "WALLETCORE_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "WALLETCORE_DATABASE_DATABASE", "DB_NAME")

	// NATS
	_ = v.BindEnv("nats.url", "WALLETCORE_NATS_URL", "NATS_URL")

	// Server
	_ = v.BindEnv("server.port", "WALLETCORE_SERVER_PORT", "PORT")

	// App
	_ = v.BindEnv("app.environment", "WALLETCORE_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Wallet.OneTimeLimitUSD == "" || c.Wallet.DailyLimitUSD == "" {
		return fmt.Errorf("transfer ceilings are required")
	}
	if c.Wallet.ReconciliationInterval <= 0 {
		return fmt.Errorf("reconciliation interval must be positive")
	}
	if c.Wallet.ReconciliationBatch <= 0 {
		return fmt.Errorf("reconciliation batch size must be positive")
	}
	if rate, ok := c.Wallet.ExchangeRates["USD"]; ok && rate != "1" {
		return fmt.Errorf("USD rate must be 1")
	}
	return nil
}

// Development returns a configuration for local development.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "walletcore",
			Version:     "dev",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "walletcore",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Enabled: true,
		},
		Wallet: WalletConfig{
			OneTimeLimitUSD: "2000",
			DailyLimitUSD:   "5000",
			ExchangeRates: map[string]string{
				"USD": "1",
				"EUR": "0.92",
				"GBP": "0.79",
				"JPY": "149.50",
				"VND": "24500",
				"AUD": "1.52",
				"CAD": "1.36",
			},
			ReconciliationInterval: time.Minute,
			ReconciliationBatch:    100,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// Test returns a configuration for tests.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "walletcore_test"
	cfg.Log.Level = "error"
	return cfg
}
