// Package config handles configuration for the server component: defaults,
// an optional JSON file, command-line flags and finally environment variables.
// Later sources take precedence over earlier ones.
package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingSecret is returned by Load when no signing secret was supplied
// through -s, the JSON file or FOLIO_SECRET_KEY.
var ErrMissingSecret = errors.New("signing secret is not configured")

// Config holds runtime settings for the folio server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the REST endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Required, no default.
//   - AccessTokenValidityDuration: lifetime of an issued access token.
//   - AdminEmail: account email that is treated as admin regardless of its flag.
//   - ReadTimeout / ShutdownTimeout: HTTP server timeouts.
type Config struct {
	EndpointAddrHTTP            string        `env:"FOLIO_ADDR"`
	DatabaseDSN                 string        `env:"FOLIO_DATABASE_DSN"`
	SecretKey                   string        `env:"FOLIO_SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"FOLIO_TOKEN_TTL"`
	AdminEmail                  string        `env:"FOLIO_ADMIN_EMAIL"`
	ReadTimeout                 time.Duration `env:"FOLIO_READ_TIMEOUT"`
	ShutdownTimeout             time.Duration `env:"FOLIO_SHUTDOWN_TIMEOUT"`
}

// LoadDefaults populates Config with development defaults. SecretKey is left
// empty.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.AdminEmail = ""
	c.ReadTimeout = 10 * time.Second
	c.ShutdownTimeout = 5 * time.Second
}

// LoadConfig builds a Config from os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then the JSON file named by -c/-config in args, then
// the flags in args, then the environment. It fails with ErrMissingSecret
// when no source set SecretKey.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}
