package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PhaseKing/internal/config"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/mesh"
	"PhaseKing/internal/network"
	"PhaseKing/internal/phaseking"
	"PhaseKing/internal/random"
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

	seed, err := random.ParseSeed(cfg.Seed)
	if err != nil {
		return err
	}

	endpoint, err := network.NewEndpoint(network.Config{ListenAddr: cfg.Listen})
	if err != nil {
		return fmt.Errorf("create endpoint:\n%w", err)
	}
	defer endpoint.Close()

	if err := endpoint.Listen(); err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	logger.Info("starting phase king participant",
		"quic", endpoint.Addr(),
		"coordinator", cfg.Coordinator,
		"requested", cfg.ID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topology, err := mesh.Join(ctx, endpoint, mesh.JoinConfig{
		Coordinator: cfg.Coordinator,
		Advertise:   cfg.Advertise,
		RequestedID: cfg.ID,
		Retry:       retryPolicy(cfg),
	})
	if err != nil {
		return fmt.Errorf("join fleet:\n%w", err)
	}

	p, err := phaseking.NewParticipant(topology, seed.Source(random.ParticipantLabel(topology.Self())))
	if err != nil {
		topology.Close()
		return err
	}

	if err := p.Serve(); err != nil {
		return fmt.Errorf("serve:\n%w", err)
	}

	logger.Info("fleet terminated", "sessions", p.Sessions())

	return nil
}

// retryPolicy applies the configured retry settings over the defaults.
func retryPolicy(cfg *config.Participant) mesh.Retry {
	retry := mesh.DefaultRetry
	retry.Retries = cfg.Retries

	if cfg.RetryDelay > 0 {
		retry.Delay = cfg.RetryDelay
	}

	if retry.MaxDelay < retry.Delay {
		retry.MaxDelay = retry.Delay
	}

	return retry
}
