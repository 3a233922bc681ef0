// Package config loads runtime configuration for the folio CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//  4. Environment: FOLIO_SERVER_URL, FOLIO_SESSION_DSN, FOLIO_SESSION_KEY.
//
// The session key has no flag so it stays out of shell history.
//
// Supported flags
//
//	-a string   base URL of the folio server
//	-i int      session validation interval (minutes)
//	-t int      request timeout (seconds)
//	-f string   session database file
//
// # JSON schema
//
// Durations are timex.Duration, so values are strings like "10m" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "5s",
//	  "refresh_skew": "30m",
//	  "session_max_age": "720h",
//	  "backend_token_ttl": "24h",
//	  "validate_interval": "10m",
//	  "session_dsn": "folio-session.db",
//	  "session_key": ""
//	}
package config
