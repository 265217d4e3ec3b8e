package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/rechub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the RecHub API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
