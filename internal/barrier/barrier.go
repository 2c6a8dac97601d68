// Package barrier implements the coordinator-mediated rendezvous that keeps
// every participant in lock-step: each participant signals arrival and
// blocks; the coordinator waits for all arrivals, then releases everyone.
//
// There is no timeout. A participant that never arrives stalls the fleet,
// which is the failure model of the synchronous protocol built on top.
package barrier

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"PhaseKing/internal/logger"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
)

// Arrive is the participant side: send signal to the coordinator and block
// until it is echoed back.
func Arrive(coordinator network.Channel, signal byte) error {
	if err := coordinator.Send(signal); err != nil {
		return fmt.Errorf("signal arrival: %w", err)
	}

	released, err := coordinator.Receive()
	if err != nil {
		return fmt.Errorf("await release: %w", err)
	}

	if released != signal {
		return fmt.Errorf("release byte %d, want %d: %w", released, signal, protocol.ErrUnexpectedByte)
	}

	return nil
}

// Release is the coordinator side: read one arrival from every participant,
// log logText once all have arrived (if non-empty), then send signal to
// every participant. participants[i] is the channel of participant i+1.
func Release(participants []network.Channel, signal byte, logText string) error {
	var g errgroup.Group

	for i, ch := range participants {
		id := i + 1
		g.Go(func() error {
			b, err := ch.Receive()
			if err != nil {
				return fmt.Errorf("participant %d arrival: %w", id, err)
			}

			if b != signal {
				return fmt.Errorf("participant %d arrival byte %d, want %d: %w", id, b, signal, protocol.ErrUnexpectedByte)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if logText != "" {
		logger.Info(logText)
	}

	for i, ch := range participants {
		if err := ch.Send(signal); err != nil {
			return fmt.Errorf("release participant %d: %w", i+1, err)
		}
	}

	return nil
}
