package main

import (
	"flag"
	"fmt"
)

// Config holds the monitor configuration.
type Config struct {
	// Coordinator is the coordinator's status API address.
	Coordinator string

	// Command is one of status, runs or export.
	Command string

	// RunID is the run to export.
	RunID string

	// Output is the file the exported archive is written to.
	Output string
}

// parseFlags parses command-line flags into Config.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.StringVar(&cfg.Coordinator, "coordinator", "127.0.0.1:8080", "Coordinator status API address")
	fs.StringVar(&cfg.Output, "o", "", "Archive output path (default <run>.pkl)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: monitor [flags] status | runs | export <run-id>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Command = "status"
	if fs.NArg() > 0 {
		cfg.Command = fs.Arg(0)
	}

	switch cfg.Command {
	case "status", "runs":
		if fs.NArg() > 1 {
			return nil, fmt.Errorf("%s takes no arguments", cfg.Command)
		}
	case "export":
		if fs.NArg() != 2 {
			return nil, fmt.Errorf("export takes exactly one run id")
		}
		cfg.RunID = fs.Arg(1)
		if cfg.Output == "" {
			cfg.Output = cfg.RunID + ".pkl"
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	return cfg, nil
}
