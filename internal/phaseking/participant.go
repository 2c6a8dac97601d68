package phaseking

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"PhaseKing/internal/barrier"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/mesh"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
)

// Participant runs sessions on command from the coordinator.
// It is driven by a single goroutine.
type Participant struct {
	params   protocol.Params // params is derived from the fleet size
	topology *mesh.Topology  // topology holds every channel this participant uses
	rng      *rand.Rand      // rng draws estimates and adversarial bits
	log      *slog.Logger    // log carries the participant id
	sessions int             // sessions counts completed sessions

	// initial draws the estimate an honest session starts from.
	initial func() bool
}

// NewParticipant creates a participant over an established topology.
func NewParticipant(topology *mesh.Topology, rng *rand.Rand) (*Participant, error) {
	params, err := protocol.NewParams(topology.Size())
	if err != nil {
		return nil, err
	}

	p := &Participant{
		params:   params,
		topology: topology,
		rng:      rng,
		log:      logger.With("node", topology.Self()),
	}
	p.initial = func() bool { return random.Bit(p.rng) }

	return p, nil
}

// Params returns the protocol parameters the participant runs with.
func (p *Participant) Params() protocol.Params {
	return p.params
}

// Sessions returns how many sessions the participant has completed.
func (p *Participant) Sessions() int {
	return p.sessions
}

// Serve reads commands from the coordinator until told to terminate.
// Each role byte starts a session whose outcome is reported back.
// On terminate every channel is closed and Serve returns nil; on any
// error the channels are closed as well and the error is returned.
func (p *Participant) Serve() error {
	coordinator := p.topology.Coordinator()

	for {
		cmd, err := coordinator.Receive()
		if err != nil {
			p.topology.Close()
			return fmt.Errorf("read command: %w", err)
		}

		var outcome protocol.Outcome

		switch cmd {
		case protocol.RoleHonest:
			outcome, err = p.Honest()

		case protocol.RoleAdversarial:
			outcome, err = p.Adversarial()

		case protocol.Terminate:
			p.log.Debug("terminating", "sessions", p.sessions)
			return p.topology.Close()

		default:
			p.topology.Close()
			return fmt.Errorf("command %d: %w", cmd, protocol.ErrUnexpectedByte)
		}

		if err != nil {
			p.topology.Close()
			return fmt.Errorf("session %d: %w", p.sessions, err)
		}

		if err := coordinator.Send(outcome.Byte()); err != nil {
			p.topology.Close()
			return fmt.Errorf("report outcome: %w", err)
		}

		p.sessions++
	}
}

// Honest runs one session following the protocol and returns the decision.
func (p *Participant) Honest() (protocol.Outcome, error) {
	self := p.topology.Self()
	estimate := p.initial()

	p.log.Debug("session start", "role", protocol.Honest, "estimate", estimate)

	for phase := 0; phase < p.params.PhaseCount; phase++ {
		// Round 1: exchange estimates with every peer.
		var tally protocol.Tally
		tally.Add(estimate)

		err := p.eachPeer(func(id int, ch network.Channel) error {
			if err := ch.Send(protocol.EncodeBool(estimate)); err != nil {
				return fmt.Errorf("send estimate to %d: %w", id, err)
			}

			b, err := ch.Receive()
			if err != nil {
				return fmt.Errorf("receive estimate from %d: %w", id, err)
			}

			tally.Add(protocol.DecodeBool(b))

			return nil
		})
		if err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 1: %w", phase, err)
		}

		majority, majCount := tally.Majority()

		p.log.Debug("round 1",
			"phase", phase,
			"true", tally.True,
			"false", tally.False,
			"majority", majority,
		)

		if err := barrier.Arrive(p.topology.Coordinator(), protocol.BarrierSignal); err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 1: %w", phase, err)
		}

		// Round 2: the king broadcasts its majority as the tiebreaker.
		king := p.params.King(phase)

		if king == self {
			err = p.eachPeer(func(id int, ch network.Channel) error {
				if err := ch.Send(protocol.EncodeBool(majority)); err != nil {
					return fmt.Errorf("send tiebreaker to %d: %w", id, err)
				}
				return nil
			})
			if err != nil {
				return protocol.Outcome{}, fmt.Errorf("phase %d round 2: %w", phase, err)
			}

			estimate = majority
		} else {
			b, err := p.topology.Peer(king).Receive()
			if err != nil {
				return protocol.Outcome{}, fmt.Errorf("phase %d round 2: receive tiebreaker from %d: %w", phase, king, err)
			}

			estimate = Decide(p.params, majority, majCount, protocol.DecodeBool(b))
		}

		p.log.Debug("round 2",
			"phase", phase,
			"king", king,
			"estimate", estimate,
		)

		if err := barrier.Arrive(p.topology.Coordinator(), protocol.BarrierSignal); err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 2: %w", phase, err)
		}
	}

	p.log.Debug("decided", "value", estimate)

	return protocol.Decided(estimate), nil
}

// Adversarial runs one session sending independent random bits where an
// honest participant would send its estimate or tiebreaker. Received values
// are discarded and no decision is reported.
func (p *Participant) Adversarial() (protocol.Outcome, error) {
	self := p.topology.Self()

	p.log.Debug("session start", "role", protocol.Adversarial)

	for phase := 0; phase < p.params.PhaseCount; phase++ {
		err := p.eachPeer(func(id int, ch network.Channel) error {
			if err := ch.Send(protocol.EncodeBool(random.Bit(p.rng))); err != nil {
				return fmt.Errorf("send to %d: %w", id, err)
			}

			if _, err := ch.Receive(); err != nil {
				return fmt.Errorf("receive from %d: %w", id, err)
			}

			return nil
		})
		if err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 1: %w", phase, err)
		}

		if err := barrier.Arrive(p.topology.Coordinator(), protocol.BarrierSignal); err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 1: %w", phase, err)
		}

		king := p.params.King(phase)

		if king == self {
			err = p.eachPeer(func(id int, ch network.Channel) error {
				if err := ch.Send(protocol.EncodeBool(random.Bit(p.rng))); err != nil {
					return fmt.Errorf("send tiebreaker to %d: %w", id, err)
				}
				return nil
			})
		} else if _, rerr := p.topology.Peer(king).Receive(); rerr != nil {
			err = fmt.Errorf("receive tiebreaker from %d: %w", king, rerr)
		}
		if err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 2: %w", phase, err)
		}

		if err := barrier.Arrive(p.topology.Coordinator(), protocol.BarrierSignal); err != nil {
			return protocol.Outcome{}, fmt.Errorf("phase %d round 2: %w", phase, err)
		}
	}

	return protocol.NoDecision(), nil
}

// eachPeer calls fn for every peer in ascending id order, stopping at the
// first error.
func (p *Participant) eachPeer(fn func(id int, ch network.Channel) error) error {
	for id := 1; id <= p.params.NodeCount; id++ {
		if id == p.topology.Self() {
			continue
		}

		if err := fn(id, p.topology.Peer(id)); err != nil {
			return err
		}
	}

	return nil
}
