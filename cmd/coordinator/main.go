package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"PhaseKing/internal/logger"
	"PhaseKing/internal/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Init(cfg.Verbose)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	c, err := newCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("create coordinator:\n%w", err)
	}

	printStartupInfo(cfg, c.params)

	return c.Run()
}

// printStartupInfo displays the coordinator configuration at startup.
func printStartupInfo(cfg *Config, params protocol.Params) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)

	logger.Info("starting phase king coordinator",
		"pubkey", hex.EncodeToString(pubKey),
		"quic", cfg.Listen,
		"nodes", cfg.Nodes,
		"data", cfg.DataDir,
		"status", cfg.StatusAddr,
	)

	logger.Info(fmt.Sprintf("Maximum byzantines: %d, tiebreaking threshold: %d", params.MaxByzantine, params.Threshold()))
}
