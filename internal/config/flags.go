package config

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

// Flags holds all command line flag values
type Flags struct {
	fs *flag.FlagSet

	// General
	configFile *string
	version    *bool

	// Server
	serverPort         *int
	serverHost         *string
	serverReadTimeout  *string
	serverWriteTimeout *string
	serverTLSEnabled   *bool
	serverTLSCert      *string
	serverTLSKey       *string

	// Database
	dbType             *string
	dbSQLitePath       *string
	dbPostgresHost     *string
	dbPostgresPort     *int
	dbPostgresDatabase *string
	dbPostgresUser     *string
	dbPostgresPassword *string
	dbPostgresSSLMode  *string

	// JWT
	jwtSecret     *string
	jwtExpiration *string
	jwtIssuer     *string

	// Logging
	logLevel  *string
	logFormat *string

	// Security
	securityCORSEnabled *bool
	securityCORSOrigins *[]string

	// Alerts
	alertsEnabled    *bool
	alertsRecipients *[]string
	alertsThreshold  *float64

	// Archive
	archiveDriver   *string
	archiveFSPath   *string
	archiveS3Bucket *string

	// Metrics
	metricsEnabled *bool
}

// NewFlags defines all flags on fs without parsing them
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}

	// General flags
	f.configFile = fs.StringP("config", "c", "config.yaml", "Path to configuration file")
	f.version = fs.BoolP("version", "v", false, "Print version and exit")

	// Server flags
	f.serverPort = fs.Int("server.port", 0, "HTTP server port")
	f.serverHost = fs.String("server.host", "", "HTTP server bind address")
	f.serverReadTimeout = fs.String("server.read-timeout", "", "Server read timeout (e.g., 30s)")
	f.serverWriteTimeout = fs.String("server.write-timeout", "", "Server write timeout (e.g., 30s)")
	f.serverTLSEnabled = fs.Bool("server.tls-enabled", false, "Enable HTTPS")
	f.serverTLSCert = fs.String("server.tls-cert", "", "Path to TLS certificate")
	f.serverTLSKey = fs.String("server.tls-key", "", "Path to TLS key")

	// Database flags
	f.dbType = fs.String("db.type", "", "Database type (sqlite or postgres)")
	f.dbSQLitePath = fs.String("db.sqlite.path", "", "SQLite database file path")
	f.dbPostgresHost = fs.String("db.postgres.host", "", "PostgreSQL host")
	f.dbPostgresPort = fs.Int("db.postgres.port", 0, "PostgreSQL port")
	f.dbPostgresDatabase = fs.String("db.postgres.database", "", "PostgreSQL database name")
	f.dbPostgresUser = fs.String("db.postgres.user", "", "PostgreSQL user")
	f.dbPostgresPassword = fs.String("db.postgres.password", "", "PostgreSQL password")
	f.dbPostgresSSLMode = fs.String("db.postgres.ssl-mode", "", "PostgreSQL SSL mode")

	// JWT flags
	f.jwtSecret = fs.String("jwt.secret", "", "JWT secret key")
	f.jwtExpiration = fs.String("jwt.expiration", "", "JWT expiration duration (e.g., 12h)")
	f.jwtIssuer = fs.String("jwt.issuer", "", "JWT issuer")

	// Logging flags
	f.logLevel = fs.StringP("log.level", "l", "", "Log level (debug, info, warn, error)")
	f.logFormat = fs.String("log.format", "", "Log format (json or console)")

	// Security flags
	f.securityCORSEnabled = fs.Bool("security.cors-enabled", false, "Enable CORS")
	f.securityCORSOrigins = fs.StringSlice("security.cors-origins", nil, "CORS allowed origins (can be specified multiple times)")

	// Alert flags
	f.alertsEnabled = fs.Bool("alerts.enabled", false, "Send malfunction alert e-mails")
	f.alertsRecipients = fs.StringSlice("alerts.recipients", nil, "Alert recipients (can be specified multiple times)")
	f.alertsThreshold = fs.Float64("alerts.threshold", 0, "Malfunction percentage above which an alert is sent")

	// Archive flags
	f.archiveDriver = fs.String("archive.driver", "", "Report archive driver (none, fs or s3)")
	f.archiveFSPath = fs.String("archive.fs.path", "", "Report archive directory")
	f.archiveS3Bucket = fs.String("archive.s3.bucket", "", "Report archive S3 bucket")

	// Metrics flags
	f.metricsEnabled = fs.Bool("metrics.enabled", false, "Expose prometheus metrics")

	return f
}

// ParseFlags defines and parses all command line flags
func ParseFlags() (*Flags, string, bool) {
	f := NewFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "EndoTrace - endoscope inventory and sterilisation tracking\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration priority (highest to lowest):\n")
		fmt.Fprintf(os.Stderr, "  1. Command line flags\n")
		fmt.Fprintf(os.Stderr, "  2. Environment variables (ENDOTRACE_*, SMTP_*, .env)\n")
		fmt.Fprintf(os.Stderr, "  3. Configuration file (default: config.yaml)\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/endotrace/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --server.port 9000 --db.type postgres --db.postgres.host db.local --db.postgres.database endotrace\n", os.Args[0])
	}

	flag.Parse()

	return f, *f.configFile, *f.version
}

func (f *Flags) changed(name string) bool {
	fl := f.fs.Lookup(name)
	return fl != nil && fl.Changed
}

// applyFlags copies every flag that was explicitly set onto the configuration
func (c *Config) applyFlags(f *Flags) error {
	if f.changed("server.port") {
		c.Server.Port = *f.serverPort
	}
	if f.changed("server.host") {
		c.Server.Host = *f.serverHost
	}
	if f.changed("server.read-timeout") {
		d, err := time.ParseDuration(*f.serverReadTimeout)
		if err != nil {
			return fmt.Errorf("server.read-timeout: %w", err)
		}
		c.Server.ReadTimeout = d
	}
	if f.changed("server.write-timeout") {
		d, err := time.ParseDuration(*f.serverWriteTimeout)
		if err != nil {
			return fmt.Errorf("server.write-timeout: %w", err)
		}
		c.Server.WriteTimeout = d
	}
	if f.changed("server.tls-enabled") {
		c.Server.TLSEnabled = *f.serverTLSEnabled
	}
	if f.changed("server.tls-cert") {
		c.Server.TLSCert = *f.serverTLSCert
	}
	if f.changed("server.tls-key") {
		c.Server.TLSKey = *f.serverTLSKey
	}

	if f.changed("db.type") {
		c.Database.Type = *f.dbType
	}
	if f.changed("db.sqlite.path") {
		c.Database.SQLite.Path = *f.dbSQLitePath
	}
	if f.changed("db.postgres.host") {
		c.Database.Postgres.Host = *f.dbPostgresHost
	}
	if f.changed("db.postgres.port") {
		c.Database.Postgres.Port = *f.dbPostgresPort
	}
	if f.changed("db.postgres.database") {
		c.Database.Postgres.Database = *f.dbPostgresDatabase
	}
	if f.changed("db.postgres.user") {
		c.Database.Postgres.User = *f.dbPostgresUser
	}
	if f.changed("db.postgres.password") {
		c.Database.Postgres.Password = *f.dbPostgresPassword
	}
	if f.changed("db.postgres.ssl-mode") {
		c.Database.Postgres.SSLMode = *f.dbPostgresSSLMode
	}

	if f.changed("jwt.secret") {
		c.JWT.Secret = *f.jwtSecret
	}
	if f.changed("jwt.expiration") {
		d, err := time.ParseDuration(*f.jwtExpiration)
		if err != nil {
			return fmt.Errorf("jwt.expiration: %w", err)
		}
		c.JWT.Expiration = d
	}
	if f.changed("jwt.issuer") {
		c.JWT.Issuer = *f.jwtIssuer
	}

	if f.changed("log.level") {
		c.Logging.Level = *f.logLevel
	}
	if f.changed("log.format") {
		c.Logging.Format = *f.logFormat
	}

	if f.changed("security.cors-enabled") {
		c.Security.CORSEnabled = *f.securityCORSEnabled
	}
	if f.changed("security.cors-origins") {
		c.Security.CORSOrigins = *f.securityCORSOrigins
	}

	if f.changed("alerts.enabled") {
		c.Alerts.Enabled = *f.alertsEnabled
	}
	if f.changed("alerts.recipients") {
		c.Alerts.Recipients = *f.alertsRecipients
	}
	if f.changed("alerts.threshold") {
		c.Alerts.Threshold = *f.alertsThreshold
	}

	if f.changed("archive.driver") {
		c.Archive.Driver = *f.archiveDriver
	}
	if f.changed("archive.fs.path") {
		c.Archive.FS.Path = *f.archiveFSPath
	}
	if f.changed("archive.s3.bucket") {
		c.Archive.S3.Bucket = *f.archiveS3Bucket
	}

	if f.changed("metrics.enabled") {
		c.Metrics.Enabled = *f.metricsEnabled
	}

	return nil
}
