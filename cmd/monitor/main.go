package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"PhaseKing/client"
	"PhaseKing/internal/logger"
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

	logger.Init(false)

	c := client.NewClient(cfg.Coordinator)

	switch cfg.Command {
	case "runs":
		return printRuns(c)
	case "export":
		return export(c, cfg.RunID, cfg.Output)
	default:
		return printStatus(c)
	}
}

// printStatus logs the fault bound and progress of the current run.
func printStatus(c *client.Client) error {
	st, err := c.Status()
	if err != nil {
		return err
	}

	logger.Info(fmt.Sprintf("Maximum byzantines: %d, tiebreaking threshold: %d", st.MaxByzantine, st.Threshold))
	logger.Info("run progress",
		"run", st.RunID,
		"nodes", st.Nodes,
		"completed", st.Completed,
		"planned", st.Planned,
		"failures", st.Failures,
		"done", st.Done,
	)

	if st.Summary != "" {
		logger.Info(st.Summary)
	}

	return nil
}

// printRuns logs every sealed run.
func printRuns(c *client.Client) error {
	runs, err := c.Runs()
	if err != nil {
		return err
	}

	for _, r := range runs {
		logger.Info("run",
			"id", r.RunID,
			"nodes", r.Nodes,
			"sessions", r.Sessions,
			"failures", r.Failures,
			"bound", r.Bound,
			"valid", r.Valid,
		)
	}

	logger.Info("sealed runs", "count", len(runs))

	return nil
}

// export downloads, verifies and stores one run's archive.
func export(c *client.Client, runID, output string) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("run id:\n%w", err)
	}

	archive, raw, err := c.Fetch(id)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, raw, 0644); err != nil {
		return fmt.Errorf("write archive:\n%w", err)
	}

	logger.Info("archive verified",
		"run", id,
		"sessions", len(archive.Records),
		"failures", archive.Verdict.Failures,
		"path", output,
	)

	return nil
}
