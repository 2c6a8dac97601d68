package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"PhaseKing/internal/config"
)

// Config holds the coordinator configuration.
type Config struct {
	config.Coordinator

	// PrivateKey is the coordinator's Ed25519 identity. It secures the
	// QUIC listener and derives the key that signs verdicts.
	PrivateKey ed25519.PrivateKey
}

// parseFlags parses command-line flags, and an optional TOML file, into Config.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{Coordinator: config.DefaultCoordinator()}

	fs := flag.NewFlagSet("coordinator", flag.ContinueOnError)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "QUIC address participants dial")
	fs.IntVar(&cfg.Nodes, "n", cfg.Nodes, "Number of participants")
	fs.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "Fixed session count (0 derives it from -ratio and -confidence)")
	fs.Float64Var(&cfg.SuccessRatio, "ratio", cfg.SuccessRatio, "Target probability of reaching consensus")
	fs.Float64Var(&cfg.Confidence, "confidence", cfg.Confidence, "Target confidence")
	fs.StringVar(&cfg.Bound, "bound", cfg.Bound, "Sample-size formula: legacy or one-sided")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "Hex randomness seed (fresh if empty)")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Ledger directory (disabled if empty)")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.StatusAddr, "status", cfg.StatusAddr, "HTTP status address (disabled if empty)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")

	if err := config.Parse(fs, args, &cfg.Coordinator); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	return cfg, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
