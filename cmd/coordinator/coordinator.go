package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PhaseKing/internal/api"
	"PhaseKing/internal/attest"
	"PhaseKing/internal/ledger"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/mesh"
	"PhaseKing/internal/metrics"
	"PhaseKing/internal/modelcheck"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
	"PhaseKing/internal/session"
)

// Coordinator gathers the fleet, runs the model check and seals the verdict.
type Coordinator struct {
	cfg    *Config
	params protocol.Params
	plan   modelcheck.Plan
	seed   random.Seed

	endpoint *network.Endpoint // endpoint accepts participants
	signer   *attest.Signer    // signer signs the verdict
	metrics  *metrics.Metrics  // metrics observes every session
	tracker  *api.Tracker      // tracker backs GET /status

	store *ledger.Store // store is nil when the ledger is disabled
	run   *ledger.Run   // run records this run's sessions
	api   *api.Server   // api is nil when the status API is disabled
}

// newCoordinator prepares every component; nothing listens yet.
func newCoordinator(cfg *Config) (*Coordinator, error) {
	params, err := protocol.NewParams(cfg.Nodes)
	if err != nil {
		return nil, err
	}

	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}

	seed, err := random.ParseSeed(cfg.Seed)
	if err != nil {
		return nil, err
	}

	signer, err := attest.Derive(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("derive signer:\n%w", err)
	}

	c := &Coordinator{
		cfg:     cfg,
		params:  params,
		plan:    plan,
		seed:    seed,
		signer:  signer,
		metrics: metrics.New(params.NodeCount),
	}
	c.metrics.SetPlanned(plan.Sessions)

	c.endpoint, err = network.NewEndpoint(network.Config{
		PrivateKey: cfg.PrivateKey,
		ListenAddr: cfg.Listen,
	})
	if err != nil {
		return nil, fmt.Errorf("create endpoint:\n%w", err)
	}

	if err := c.initLedger(); err != nil {
		return nil, err
	}

	runID := ""
	if c.run != nil {
		runID = c.run.ID().String()
	}
	c.tracker = api.NewTracker(runID, params, plan.Sessions)

	if cfg.StatusAddr != "" {
		var reader api.LedgerReader
		if c.store != nil {
			reader = c.store
		}
		c.api = api.New(cfg.StatusAddr, c.tracker, reader, c.metrics.Handler())
	}

	return c, nil
}

// initLedger opens the ledger when a data directory is configured.
func (c *Coordinator) initLedger() error {
	if c.cfg.DataDir == "" {
		return nil
	}

	if err := os.MkdirAll(c.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	store, err := ledger.Open(c.cfg.DataDir + "/ledger")
	if err != nil {
		return fmt.Errorf("open ledger:\n%w", err)
	}

	c.store = store
	c.run = store.NewRun()

	return nil
}

// observers returns every component notified of finished sessions.
func (c *Coordinator) observers() []session.Observer {
	obs := []session.Observer{c.metrics, c.tracker}
	if c.run != nil {
		obs = append(obs, c.run)
	}

	return obs
}

// Run gathers the participants, runs every planned session and terminates
// the fleet.
func (c *Coordinator) Run() (err error) {
	defer func() {
		err = errors.Join(err, c.Close())
	}()

	if c.api != nil {
		if err := c.api.Start(); err != nil {
			return fmt.Errorf("start status api:\n%w", err)
		}
	}

	if err := c.endpoint.Listen(); err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for participants", "addr", c.endpoint.Addr(), "nodes", c.params.NodeCount)

	start := time.Now()

	channels, err := mesh.Gather(ctx, c.endpoint, c.params.NodeCount, mesh.NewArrivalOrder(c.params.NodeCount))
	if err != nil {
		return fmt.Errorf("gather participants:\n%w", err)
	}

	logger.Info("fleet assembled", "nodes", len(channels), logger.Timed(start))

	driver, err := session.NewDriver(channels, c.seed.Source(random.CoordinatorLabel), c.observers()...)
	if err != nil {
		return err
	}

	report, checkErr := modelcheck.Check(driver, c.plan)

	if err := driver.Terminate(); err != nil {
		logger.Warn("terminate fleet", "error", err)
	}

	if checkErr != nil {
		return fmt.Errorf("model check:\n%w", checkErr)
	}

	summary := report.Summary()
	c.tracker.Finish(summary)

	logger.Info(summary,
		"sessions", report.Sessions,
		"failures", report.Failures,
		"elapsed", report.Duration,
		"seed", c.seed.String(),
	)

	return c.seal(report)
}

// seal stores the signed verdict of the run.
func (c *Coordinator) seal(report modelcheck.Report) error {
	if c.run == nil {
		return nil
	}

	v := ledger.Verdict{
		RunID:        c.run.ID(),
		NodeCount:    c.params.NodeCount,
		Sessions:     report.Sessions,
		Failures:     report.Failures,
		SuccessRatio: report.Plan.SuccessRatio,
		Confidence:   report.Plan.Confidence,
		Bound:        string(report.Plan.Bound),
		Seed:         c.seed,
	}
	v.Sign(c.signer)

	if err := c.run.Seal(v); err != nil {
		return err
	}

	logger.Info("verdict sealed", "run", c.run.ID())

	return nil
}

// Close stops the status API, the endpoint and the ledger.
func (c *Coordinator) Close() error {
	var errs []error

	if c.api != nil {
		errs = append(errs, c.api.Stop())
	}

	errs = append(errs, c.endpoint.Close())

	if c.store != nil {
		errs = append(errs, c.store.Close())
	}

	return errors.Join(errs...)
}
