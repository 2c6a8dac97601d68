// Package cluster runs a whole fleet, coordinator and participants, inside
// one process, over in-memory pipes or loopback QUIC.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"PhaseKing/internal/mesh"
	"PhaseKing/internal/network"
	"PhaseKing/internal/phaseking"
	"PhaseKing/internal/random"
	"PhaseKing/internal/session"
)

// Fleet is a running in-process deployment.
type Fleet struct {
	driver    *session.Driver     // driver is the coordinator side
	serving   errgroup.Group      // serving runs every participant's command loop
	endpoints []*network.Endpoint // endpoints are closed on Stop; empty for memory fleets
}

// StartMemory starts n participants over in-memory pipes.
func StartMemory(n int, seed random.Seed, observers ...session.Observer) (*Fleet, error) {
	coord, topologies, err := mesh.NewMemory(n)
	if err != nil {
		return nil, err
	}

	return start(coord, topologies, seed, nil, observers)
}

// StartQUIC starts n participants, each with its own loopback QUIC
// endpoint, and runs the full setup handshake against a coordinator
// endpoint.
func StartQUIC(ctx context.Context, n int, seed random.Seed, observers ...session.Observer) (f *Fleet, err error) {
	var endpoints []*network.Endpoint

	defer func() {
		if err != nil {
			for _, e := range endpoints {
				e.Close()
			}
		}
	}()

	listen := func() (*network.Endpoint, error) {
		e, err := network.NewEndpoint(network.Config{ListenAddr: "127.0.0.1:0"})
		if err != nil {
			return nil, err
		}

		if err := e.Listen(); err != nil {
			return nil, err
		}

		endpoints = append(endpoints, e)

		return e, nil
	}

	coordinator, err := listen()
	if err != nil {
		return nil, fmt.Errorf("coordinator endpoint: %w", err)
	}

	participants := make([]*network.Endpoint, n)
	for i := range participants {
		if participants[i], err = listen(); err != nil {
			return nil, fmt.Errorf("participant endpoint: %w", err)
		}
	}

	topologies := make([]*mesh.Topology, n)
	g, gctx := errgroup.WithContext(ctx)

	for i, e := range participants {
		g.Go(func() error {
			topo, err := mesh.Join(gctx, e, mesh.JoinConfig{
				Coordinator: coordinator.Addr(),
				RequestedID: i + 1,
				Retry:       mesh.DefaultRetry,
			})
			if err != nil {
				return err
			}

			topologies[i] = topo

			return nil
		})
	}

	var channels []network.Channel
	g.Go(func() error {
		var err error
		channels, err = mesh.Gather(gctx, coordinator, n, mesh.NewArrivalOrder(n))
		return err
	})

	if err := g.Wait(); err != nil {
		for _, topo := range topologies {
			if topo != nil {
				topo.Close()
			}
		}
		return nil, fmt.Errorf("setup: %w", err)
	}

	return start(channels, topologies, seed, endpoints, observers)
}

// start creates the driver and serves every participant.
func start(coord []network.Channel, topologies []*mesh.Topology, seed random.Seed, endpoints []*network.Endpoint, observers []session.Observer) (*Fleet, error) {
	driver, err := session.NewDriver(coord, seed.Source(random.CoordinatorLabel), observers...)
	if err != nil {
		return nil, err
	}

	participants := make([]*phaseking.Participant, len(topologies))
	for i, topo := range topologies {
		participants[i], err = phaseking.NewParticipant(topo, seed.Source(random.ParticipantLabel(topo.Self())))
		if err != nil {
			return nil, err
		}
	}

	f := &Fleet{driver: driver, endpoints: endpoints}
	for _, p := range participants {
		f.serving.Go(p.Serve)
	}

	return f, nil
}

// Driver returns the coordinator side of the fleet.
func (f *Fleet) Driver() *session.Driver {
	return f.driver
}

// Stop terminates every participant, waits for their command loops and
// closes the endpoints.
func (f *Fleet) Stop() error {
	errs := []error{f.driver.Terminate(), f.serving.Wait()}

	for _, e := range f.endpoints {
		errs = append(errs, e.Close())
	}

	return errors.Join(errs...)
}
