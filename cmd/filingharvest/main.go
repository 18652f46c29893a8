// Command filingharvest downloads an SEC filing, extracts its tagged facts,
// links and sections into JSON, and writes a copy with readable keys.
//
// Usage:
//
//	filingharvest run
//	filingharvest fetch | extract | clean
//	filingharvest profile
//
// See --help for all options.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.DefaultContextLogger = &log.Logger
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("filingharvest")
		os.Exit(1)
	}
}
