// Package config provides configuration management for EndoTrace.
// It handles loading configuration from YAML files, applying .env and environment
// variable overrides, applying command line flags, and validating configuration
// values for the server, database, JWT, logging, security, alerting, report archive
// and metrics settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled bool     `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// AlertsConfig holds the SMTP settings of the malfunction alert
type AlertsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SMTPHost   string        `yaml:"smtp_host"`
	SMTPPort   int           `yaml:"smtp_port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	From       string        `yaml:"from"`
	Recipients []string      `yaml:"recipients"`
	Threshold  float64       `yaml:"threshold"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ArchiveConfig selects where generated PDF reports are kept
type ArchiveConfig struct {
	Driver string          `yaml:"driver"` // none, fs or s3
	FS     FSArchiveConfig `yaml:"fs"`
	S3     S3ArchiveConfig `yaml:"s3"`
}

// FSArchiveConfig holds filesystem archive configuration
type FSArchiveConfig struct {
	Path string `yaml:"path"`
}

// S3ArchiveConfig holds S3 / MinIO archive configuration
type S3ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

// MetricsConfig holds prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DashboardConfig holds dashboard tuning
type DashboardConfig struct {
	RecentBreakdownDays int `yaml:"recent_breakdown_days"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "endotrace.db",
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		},
		JWT: JWTConfig{
			Expiration: 12 * time.Hour,
			Issuer:     "endotrace",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Alerts: AlertsConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			Threshold: 50,
			Timeout:   10 * time.Second,
		},
		Archive: ArchiveConfig{
			Driver: "none",
			FS: FSArchiveConfig{
				Path: "./archive",
			},
			S3: S3ArchiveConfig{
				Region: "us-east-1",
				Prefix: "reports",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Dashboard: DashboardConfig{
			RecentBreakdownDays: 7,
		},
	}
}

// Load reads the configuration file, then applies .env, environment variables and
// flags in that order. A missing file is not an error: defaults are used instead.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnvOverrides()

	if flags != nil {
		if err := cfg.applyFlags(flags); err != nil {
			return nil, fmt.Errorf("invalid flag value: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("ENDOTRACE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("ENDOTRACE_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("ENDOTRACE_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("ENDOTRACE_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("ENDOTRACE_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("ENDOTRACE_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("ENDOTRACE_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("ENDOTRACE_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("ENDOTRACE_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// JWT overrides
	if jwtSecret := os.Getenv("ENDOTRACE_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	// Logging overrides
	if logLevel := os.Getenv("ENDOTRACE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	// SMTP overrides, named after the variables the alert mail has always used
	if host := os.Getenv("SMTP_SERVER"); host != "" {
		c.Alerts.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Alerts.SMTPPort = p
		}
	}
	if user := os.Getenv("EMAIL_USER"); user != "" {
		c.Alerts.Username = user
		if c.Alerts.From == "" {
			c.Alerts.From = user
		}
	}
	if pass := os.Getenv("EMAIL_PASSWORD"); pass != "" {
		c.Alerts.Password = pass
	}
	if rcpt := os.Getenv("ALERT_RECIPIENTS"); rcpt != "" {
		c.Alerts.Recipients = splitList(rcpt)
	}

	// Archive overrides
	if driver := os.Getenv("ENDOTRACE_ARCHIVE_DRIVER"); driver != "" {
		c.Archive.Driver = driver
	}
	if bucket := os.Getenv("ENDOTRACE_ARCHIVE_S3_BUCKET"); bucket != "" {
		c.Archive.S3.Bucket = bucket
	}
	if endpoint := os.Getenv("ENDOTRACE_ARCHIVE_S3_ENDPOINT"); endpoint != "" {
		c.Archive.S3.Endpoint = endpoint
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate alerts config
	if c.Alerts.Enabled {
		if c.Alerts.SMTPHost == "" || c.Alerts.SMTPPort == 0 {
			return fmt.Errorf("alerts enabled but SMTP host or port not specified")
		}
		if len(c.Alerts.Recipients) == 0 {
			return fmt.Errorf("alerts enabled but no recipients specified")
		}
	}
	if c.Alerts.Threshold < 0 || c.Alerts.Threshold > 100 {
		return fmt.Errorf("invalid alert threshold: %.1f (must be between 0 and 100)", c.Alerts.Threshold)
	}

	// Validate archive config
	switch c.Archive.Driver {
	case "", "none":
	case "fs":
		if c.Archive.FS.Path == "" {
			return fmt.Errorf("archive fs path not specified")
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive s3 bucket not specified")
		}
	default:
		return fmt.Errorf("invalid archive driver: %s (must be 'none', 'fs' or 's3')", c.Archive.Driver)
	}

	if c.Dashboard.RecentBreakdownDays < 1 {
		return fmt.Errorf("recent breakdown window must be at least one day")
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
