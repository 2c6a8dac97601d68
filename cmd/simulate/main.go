package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"PhaseKing/internal/attest"
	"PhaseKing/internal/cluster"
	"PhaseKing/internal/config"
	"PhaseKing/internal/ledger"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/modelcheck"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
	"PhaseKing/internal/session"
)

// setupTimeout bounds the QUIC handshake of the whole fleet.
const setupTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() (err error) {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Init(cfg.Verbose)

	params, err := protocol.NewParams(cfg.Nodes)
	if err != nil {
		return err
	}

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	seed, err := random.ParseSeed(cfg.Seed)
	if err != nil {
		return err
	}

	logger.Info("starting phase king simulation",
		"nodes", cfg.Nodes,
		"transport", cfg.Transport,
		"seed", seed.String(),
	)
	logger.Info(fmt.Sprintf("Maximum byzantines: %d, tiebreaking threshold: %d", params.MaxByzantine, params.Threshold()))

	var (
		store     *ledger.Store
		record    *ledger.Run
		observers []session.Observer
	)

	if cfg.DataDir != "" {
		if store, err = openLedger(cfg.DataDir); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, store.Close()) }()

		record = store.NewRun()
		observers = append(observers, record)
	}

	fleet, err := startFleet(cfg, seed, observers)
	if err != nil {
		return fmt.Errorf("start fleet:\n%w", err)
	}

	report, checkErr := modelcheck.Check(fleet.Driver(), plan)

	if err := fleet.Stop(); err != nil {
		logger.Warn("stop fleet", "error", err)
	}

	if checkErr != nil {
		return fmt.Errorf("model check:\n%w", checkErr)
	}

	logger.Info(report.Summary(),
		"sessions", report.Sessions,
		"failures", report.Failures,
		"elapsed", report.Duration,
	)

	if record == nil {
		return nil
	}

	return seal(record, params, seed, report)
}

// startFleet starts the in-process fleet over the configured transport.
func startFleet(cfg *config.Simulate, seed random.Seed, observers []session.Observer) (*cluster.Fleet, error) {
	if cfg.Transport == config.TransportQUIC {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()

		return cluster.StartQUIC(ctx, cfg.Nodes, seed, observers...)
	}

	return cluster.StartMemory(cfg.Nodes, seed, observers...)
}

// openLedger opens the ledger under dir, creating it if needed.
func openLedger(dir string) (*ledger.Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory:\n%w", err)
	}

	store, err := ledger.Open(dir + "/ledger")
	if err != nil {
		return nil, fmt.Errorf("open ledger:\n%w", err)
	}

	return store, nil
}

// seal stores the run's verdict, signed by a one-off key.
func seal(run *ledger.Run, params protocol.Params, seed random.Seed, report modelcheck.Report) error {
	signer, err := attest.Generate()
	if err != nil {
		return err
	}

	v := ledger.Verdict{
		RunID:        run.ID(),
		NodeCount:    params.NodeCount,
		Sessions:     report.Sessions,
		Failures:     report.Failures,
		SuccessRatio: report.Plan.SuccessRatio,
		Confidence:   report.Plan.Confidence,
		Bound:        string(report.Plan.Bound),
		Seed:         seed,
	}
	v.Sign(signer)

	if err := run.Seal(v); err != nil {
		return err
	}

	logger.Info("verdict sealed", "run", run.ID())

	return nil
}
