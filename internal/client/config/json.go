package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/folio/internal/flagx"
	"github.com/dmitrijs2005/folio/internal/timex"
)

type JsonConfig struct {
	ServerURL        *string         `json:"server_url"`
	RequestTimeout   *timex.Duration `json:"request_timeout"`
	RefreshSkew      *timex.Duration `json:"refresh_skew"`
	SessionMaxAge    *timex.Duration `json:"session_max_age"`
	BackendTokenTTL  *timex.Duration `json:"backend_token_ttl"`
	ValidateInterval *timex.Duration `json:"validate_interval"`
	SessionDSN       *string         `json:"session_dsn"`
	SessionKey       *string         `json:"session_key"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if c.ServerURL != nil {
		cfg.ServerURL = *c.ServerURL
	}
	if c.SessionDSN != nil {
		cfg.SessionDSN = *c.SessionDSN
	}
	if c.SessionKey != nil {
		cfg.SessionKey = *c.SessionKey
	}
	for _, d := range []struct {
		src *timex.Duration
		dst *time.Duration
	}{
		{c.RequestTimeout, &cfg.RequestTimeout},
		{c.RefreshSkew, &cfg.RefreshSkew},
		{c.SessionMaxAge, &cfg.SessionMaxAge},
		{c.BackendTokenTTL, &cfg.BackendTokenTTL},
		{c.ValidateInterval, &cfg.ValidateInterval},
	} {
		if d.src != nil {
			*d.dst = d.src.Duration
		}
	}
	return nil
}
