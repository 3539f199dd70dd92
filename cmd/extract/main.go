package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kiloex-bot/internal/accounts"
)

// extract converts a file of raw query lines into the pipe-delimited
// account file the bot consumes.
func main() {
	var (
		inputFile  = flag.String("in", "query.txt", "Input file with raw query lines")
		outputFile = flag.String("out", "data.txt", "Output account file")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	summary, err := accounts.Extract(*inputFile, *outputFile)
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		os.Exit(1)
	}

	log.Info().
		Str("input", *inputFile).
		Str("output", *outputFile).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Msg("extraction complete")
}
