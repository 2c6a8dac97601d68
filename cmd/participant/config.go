package main

import (
	"flag"
	"fmt"

	"PhaseKing/internal/config"
)

// parseFlags parses command-line flags, and an optional TOML file, into a
// participant configuration.
func parseFlags(args []string) (*config.Participant, error) {
	cfg := config.DefaultParticipant()

	fs := flag.NewFlagSet("participant", flag.ContinueOnError)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "QUIC address peers dial")
	fs.StringVar(&cfg.Advertise, "advertise", cfg.Advertise, "Address given to peers (defaults to the listener)")
	fs.StringVar(&cfg.Coordinator, "coordinator", cfg.Coordinator, "Coordinator QUIC address")
	fs.IntVar(&cfg.ID, "id", cfg.ID, "Requested participant id (0 accepts any)")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "Hex randomness seed (fresh if empty)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Coordinator dial retries")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "First coordinator dial retry delay")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Per-round debug logging")

	if err := config.Parse(fs, args, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	return &cfg, nil
}
