// Package config holds the settings of the coordinator, participant and
// simulate commands, their defaults and validation, and TOML file loading.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"PhaseKing/internal/modelcheck"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
)

// Coordinator configures the coordinator.
type Coordinator struct {
	Listen       string  `toml:"listen"`        // Listen is the QUIC address participants dial
	Nodes        int     `toml:"nodes"`         // Nodes is the fleet size N
	Sessions     int     `toml:"sessions"`      // Sessions fixes the session count; 0 derives it from the ratio
	SuccessRatio float64 `toml:"success_ratio"` // SuccessRatio is the target probability of consensus
	Confidence   float64 `toml:"confidence"`    // Confidence is the target confidence
	Bound        string  `toml:"bound"`         // Bound selects the sample-size formula
	Seed         string  `toml:"seed"`          // Seed is a 64-digit hex seed; empty for a fresh one
	DataDir      string  `toml:"data_dir"`      // DataDir holds the run ledger; empty disables it
	KeyPath      string  `toml:"key"`           // KeyPath is the ed25519 identity file
	StatusAddr   string  `toml:"status_addr"`   // StatusAddr serves the HTTP status API; empty disables it
	Verbose      bool    `toml:"verbose"`       // Verbose enables debug logging
}

// DefaultCoordinator returns the coordinator defaults.
func DefaultCoordinator() Coordinator {
	return Coordinator{
		Listen:       ":9000",
		Nodes:        4,
		SuccessRatio: 0.99,
		Confidence:   0.95,
		Bound:        string(modelcheck.Legacy),
	}
}

// Validate reports the first invalid setting.
func (c Coordinator) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}

	return validateRun(c.Nodes, c.Sessions, c.SuccessRatio, c.Confidence, c.Bound, c.Seed)
}

// Plan returns the model-check plan the settings describe.
func (c Coordinator) Plan() (modelcheck.Plan, error) {
	return plan(c.Sessions, c.SuccessRatio, c.Confidence, c.Bound)
}

// Participant configures one participant.
type Participant struct {
	Listen      string        `toml:"listen"`      // Listen is the QUIC address peers dial
	Advertise   string        `toml:"advertise"`   // Advertise is the address given to peers; defaults to the listener
	Coordinator string        `toml:"coordinator"` // Coordinator is the coordinator's QUIC address
	ID          int           `toml:"id"`          // ID requests a participant id; 0 accepts any
	Seed        string        `toml:"seed"`        // Seed is a 64-digit hex seed; empty for a fresh one
	Retries     int           `toml:"retries"`     // Retries bounds coordinator dial retries
	RetryDelay  time.Duration `toml:"retry_delay"` // RetryDelay is the first retry wait
	Verbose     bool          `toml:"verbose"`     // Verbose enables per-round debug logging
}

// DefaultParticipant returns the participant defaults.
func DefaultParticipant() Participant {
	return Participant{
		Listen:     ":9100",
		Retries:    3,
		RetryDelay: 2 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (p Participant) Validate() error {
	if p.Listen == "" {
		return errors.New("listen address is required")
	}

	if p.Coordinator == "" {
		return errors.New("coordinator address is required")
	}

	if p.ID < 0 || p.ID > protocol.MaxNodes {
		return fmt.Errorf("requested id %d outside [0,%d]", p.ID, protocol.MaxNodes)
	}

	if p.Retries < 0 {
		return fmt.Errorf("retries %d must not be negative", p.Retries)
	}

	if _, err := random.ParseSeed(p.Seed); err != nil {
		return err
	}

	return nil
}

// Simulate configures an in-process run.
type Simulate struct {
	Nodes        int     `toml:"nodes"`         // Nodes is the fleet size N
	Sessions     int     `toml:"sessions"`      // Sessions fixes the session count; 0 derives it from the ratio
	SuccessRatio float64 `toml:"success_ratio"` // SuccessRatio is the target probability of consensus
	Confidence   float64 `toml:"confidence"`    // Confidence is the target confidence
	Bound        string  `toml:"bound"`         // Bound selects the sample-size formula
	Seed         string  `toml:"seed"`          // Seed is a 64-digit hex seed; empty for a fresh one
	Transport    string  `toml:"transport"`     // Transport is "memory" or "quic"
	DataDir      string  `toml:"data_dir"`      // DataDir holds the run ledger; empty disables it
	Verbose      bool    `toml:"verbose"`       // Verbose enables debug logging
}

// Transports.
const (
	TransportMemory = "memory"
	TransportQUIC   = "quic"
)

// DefaultSimulate returns the simulate defaults.
func DefaultSimulate() Simulate {
	return Simulate{
		Nodes:        8,
		SuccessRatio: 0.99,
		Confidence:   0.95,
		Bound:        string(modelcheck.Legacy),
		Transport:    TransportMemory,
	}
}

// Validate reports the first invalid setting.
func (s Simulate) Validate() error {
	if s.Transport != TransportMemory && s.Transport != TransportQUIC {
		return fmt.Errorf("unknown transport %q (want %q or %q)", s.Transport, TransportMemory, TransportQUIC)
	}

	return validateRun(s.Nodes, s.Sessions, s.SuccessRatio, s.Confidence, s.Bound, s.Seed)
}

// Plan returns the model-check plan the settings describe.
func (s Simulate) Plan() (modelcheck.Plan, error) {
	return plan(s.Sessions, s.SuccessRatio, s.Confidence, s.Bound)
}

// validateRun checks the settings shared by every command that drives sessions.
func validateRun(nodes, sessions int, ratio, confidence float64, bound, seed string) error {
	if _, err := protocol.NewParams(nodes); err != nil {
		return err
	}

	if sessions < 0 {
		return fmt.Errorf("session count %d must be at least 1", sessions)
	}

	if _, err := plan(sessions, ratio, confidence, bound); err != nil {
		return err
	}

	if _, err := random.ParseSeed(seed); err != nil {
		return err
	}

	return nil
}

// plan builds a fixed plan when sessions is set, a statistical one otherwise.
func plan(sessions int, ratio, confidence float64, bound string) (modelcheck.Plan, error) {
	if sessions > 0 {
		return modelcheck.FixedPlan(sessions)
	}

	b, err := modelcheck.ParseBound(bound)
	if err != nil {
		return modelcheck.Plan{}, err
	}

	return modelcheck.NewPlan(ratio, confidence, b)
}

// LoadFile decodes a TOML file into dest.
func LoadFile(path string, dest any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// Parse parses args into fs, adding a -config flag. When a file is given it
// is loaded into dest, then flags set on the command line are applied again
// so they win over the file.
func Parse(fs *flag.FlagSet, args []string, dest any) error {
	path := fs.String("config", "", "TOML config file (flags override it)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *path == "" {
		return nil
	}

	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := LoadFile(*path, dest); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag -%s: %w", name, err)
		}
	}

	return nil
}
