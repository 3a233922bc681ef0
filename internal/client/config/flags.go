package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/folio/internal/flagx"
)

func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-t", "-f"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	interval := fs.Int("i", int(cfg.ValidateInterval.Minutes()), "session validation interval (in minutes)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionDSN, "f", cfg.SessionDSN, "session database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// only flags present on the command line override
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.ValidateInterval = time.Duration(*interval) * time.Minute
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
