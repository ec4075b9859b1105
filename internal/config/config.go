// Package config loads server settings from the environment and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/eduhub/internal/logging"
	"github.com/iudanet/eduhub/internal/server/jwt"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config is built once at startup and not modified afterwards.
type Config struct {
	HTTPAddr               string        `env:"EDUHUB_HTTP_ADDR"                 envDefault:":8080"`
	StorageDriver          string        `env:"EDUHUB_STORAGE_DRIVER"            envDefault:"sqlite"`
	DBPath                 string        `env:"EDUHUB_DB_PATH"                   envDefault:"eduhub.db"`
	AccessTokenSecret      string        `env:"EDUHUB_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret     string        `env:"EDUHUB_REFRESH_TOKEN_SECRET"`
	TokenIssuer            string        `env:"EDUHUB_TOKEN_ISSUER"              envDefault:"eduhub"`
	LogLevel               string        `env:"EDUHUB_LOG_LEVEL"                 envDefault:"info"`
	LogFormat              string        `env:"EDUHUB_LOG_FORMAT"                envDefault:"json"`
	AccessTokenTTL         time.Duration `env:"EDUHUB_ACCESS_TOKEN_TTL"          envDefault:"24h"`
	RefreshTokenTTL        time.Duration `env:"EDUHUB_REFRESH_TOKEN_TTL"         envDefault:"240h"`
	ShutdownTimeout        time.Duration `env:"EDUHUB_SHUTDOWN_TIMEOUT"          envDefault:"10s"`
	BcryptCost             int           `env:"EDUHUB_BCRYPT_COST"               envDefault:"10"`
	CookieSecure           bool          `env:"EDUHUB_COOKIE_SECURE"             envDefault:"true"`
	RevokeOnPasswordChange bool          `env:"EDUHUB_REVOKE_ON_PASSWORD_CHANGE" envDefault:"false"`
	ShowVersion            bool
	// Args holds positional arguments left after flag parsing
	Args []string
}

// Load reads the environment, then lets args override it, then validates.
// Secrets are accepted from the environment only.
func Load(name string, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "storage driver: sqlite or bolt")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database file path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or text")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token lifetime")
	fs.BoolVar(&cfg.CookieSecure, "cookie-secure", cfg.CookieSecure, "set the Secure attribute on session cookies")
	fs.BoolVar(&cfg.RevokeOnPasswordChange, "revoke-on-password-change", cfg.RevokeOnPasswordChange, "end existing sessions when the password changes")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()

	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.StorageDriver != DriverSQLite && c.StorageDriver != DriverBolt {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if err := c.JWT().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatJSON && c.LogFormat != logging.FormatText {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	return errors.Join(errs...)
}

// JWT returns the token issuer settings.
func (c Config) JWT() jwt.Config {
	return jwt.Config{
		Issuer:        c.TokenIssuer,
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	}
}
