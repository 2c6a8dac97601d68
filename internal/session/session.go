// Package session drives Phase King sessions from the coordinator: it
// assigns roles, paces the fleet through every round barrier, collects the
// outcomes and classifies the session.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"PhaseKing/internal/barrier"
	"PhaseKing/internal/fault"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
)

// Verdict classifies a finished session.
type Verdict int

const (
	// Reached means every decided participant reported the same value.
	Reached Verdict = iota

	// NotReached means decided values disagree or nobody decided.
	NotReached
)

// String returns the verdict as logged.
func (v Verdict) String() string {
	if v == Reached {
		return "consensus reached"
	}

	return "consensus not reached"
}

// Classify turns a tally of decided values into a verdict.
func Classify(t protocol.Tally) Verdict {
	if t.Unanimous() {
		return Reached
	}

	return NotReached
}

// Result describes one finished session.
type Result struct {
	Index       int            // Index is the session's position in the run, from 0
	Tally       protocol.Tally // Tally counts decided values; no-decision is excluded
	Verdict     Verdict        // Verdict is the classification of Tally
	Adversaries []int          // Adversaries lists the adversarial ids, ascending
	Duration    time.Duration  // Duration is the wall time of the session
}

// Observer is notified of every finished session.
type Observer interface {
	Observe(Result) error
}

// Driver is the coordinator's handle on a fleet.
type Driver struct {
	channels   []network.Channel // channels[i] is the link to participant i+1
	params     protocol.Params   // params is derived from the fleet size
	rng        *rand.Rand        // rng picks the adversaries
	observers  []Observer        // observers receive every result
	terminated bool              // terminated is set by the first Terminate
}

// NewDriver creates a driver over established coordinator channels.
func NewDriver(channels []network.Channel, rng *rand.Rand, observers ...Observer) (*Driver, error) {
	params, err := protocol.NewParams(len(channels))
	if err != nil {
		return nil, err
	}

	return &Driver{
		channels:  channels,
		params:    params,
		rng:       rng,
		observers: observers,
	}, nil
}

// Params returns the protocol parameters of the fleet.
func (d *Driver) Params() protocol.Params {
	return d.params
}

// Run plays one session with freshly sampled adversaries.
func (d *Driver) Run(index int) (Result, error) {
	return d.RunWith(index, fault.Assign(d.rng, d.params))
}

// RunWith plays one session with a fixed role assignment.
func (d *Driver) RunWith(index int, assignment fault.Assignment) (Result, error) {
	if d.terminated {
		return Result{}, fmt.Errorf("session %d: %w", index, network.ErrClosed)
	}

	start := time.Now()

	if err := fault.Dispatch(d.channels, assignment); err != nil {
		return Result{}, fmt.Errorf("session %d: %w", index, err)
	}

	for phase := 0; phase < d.params.PhaseCount; phase++ {
		if err := barrier.Release(d.channels, protocol.BarrierSignal, fmt.Sprintf("%d:1 over", phase+1)); err != nil {
			return Result{}, fmt.Errorf("session %d phase %d round 1: %w", index, phase, err)
		}

		if err := barrier.Release(d.channels, protocol.BarrierSignal, fmt.Sprintf("%d:2 over", phase+1)); err != nil {
			return Result{}, fmt.Errorf("session %d phase %d round 2: %w", index, phase, err)
		}
	}

	var tally protocol.Tally

	for i, ch := range d.channels {
		b, err := ch.Receive()
		if err != nil {
			return Result{}, fmt.Errorf("session %d: outcome of participant %d: %w", index, i+1, err)
		}

		outcome, err := protocol.ParseOutcome(b)
		if err != nil {
			return Result{}, fmt.Errorf("session %d: outcome of participant %d: %w", index, i+1, err)
		}

		tally.AddOutcome(outcome)
	}

	result := Result{
		Index:       index,
		Tally:       tally,
		Verdict:     Classify(tally),
		Adversaries: assignment.Adversaries(),
		Duration:    time.Since(start),
	}

	logger.Info(result.Verdict.String(),
		"session", index,
		"true", tally.True,
		"false", tally.False,
		"adversaries", result.Adversaries,
		"elapsed", result.Duration,
	)

	for _, o := range d.observers {
		if err := o.Observe(result); err != nil {
			return result, fmt.Errorf("session %d: observe: %w", index, err)
		}
	}

	return result, nil
}

// Terminate tells every participant to stop, then closes every channel.
// Every channel is attempted; the failures are joined. Later calls do nothing.
func (d *Driver) Terminate() error {
	if d.terminated {
		return nil
	}
	d.terminated = true

	var errs []error

	// Every terminate byte goes out before the first close.
	for i, ch := range d.channels {
		if err := ch.Send(protocol.Terminate); err != nil {
			errs = append(errs, fmt.Errorf("terminate participant %d: %w", i+1, err))
		}
	}

	for i, ch := range d.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close participant %d: %w", i+1, err))
		}
	}

	return errors.Join(errs...)
}
