package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays FOLIO_* environment variables. Unset variables leave the
// current value untouched.
func parseEnv(cfg *Config) error {
	return env.Parse(cfg)
}
