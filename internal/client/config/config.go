package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the folio CLI.
type Config struct {
	ServerURL        string `env:"FOLIO_SERVER_URL"`
	RequestTimeout   time.Duration
	RefreshSkew      time.Duration
	SessionMaxAge    time.Duration
	BackendTokenTTL  time.Duration
	ValidateInterval time.Duration
	SessionDSN       string `env:"FOLIO_SESSION_DSN"`

	// SessionKey seals the stored access token when non-empty.
	SessionKey string `env:"FOLIO_SESSION_KEY"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 5 * time.Second
	c.RefreshSkew = 30 * time.Minute
	c.SessionMaxAge = 30 * 24 * time.Hour
	c.BackendTokenTTL = 24 * time.Hour
	c.ValidateInterval = 10 * time.Minute
	c.SessionDSN = "folio-session.db"
}

// LoadConfig builds a Config from os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then the JSON file named by -c/-config, then flags,
// then FOLIO_* environment variables.
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
	return cfg, nil
}
