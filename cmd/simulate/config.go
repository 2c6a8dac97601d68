package main

import (
	"flag"
	"fmt"

	"PhaseKing/internal/config"
)

// parseFlags parses command-line flags, and an optional TOML file, into a
// simulation configuration.
func parseFlags(args []string) (*config.Simulate, error) {
	cfg := config.DefaultSimulate()

	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.IntVar(&cfg.Nodes, "n", cfg.Nodes, "Number of participants")
	fs.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "Fixed session count (0 derives it from -ratio and -confidence)")
	fs.Float64Var(&cfg.SuccessRatio, "ratio", cfg.SuccessRatio, "Target probability of reaching consensus")
	fs.Float64Var(&cfg.Confidence, "confidence", cfg.Confidence, "Target confidence")
	fs.StringVar(&cfg.Bound, "bound", cfg.Bound, "Sample-size formula: legacy or one-sided")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "Hex randomness seed (fresh if empty)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Links between nodes: memory or quic")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Ledger directory (disabled if empty)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")

	if err := config.Parse(fs, args, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	return &cfg, nil
}
