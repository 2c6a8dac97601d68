package mesh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"PhaseKing/internal/barrier"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
)

// Retry bounds how a participant keeps dialing a coordinator that is not up yet.
type Retry struct {
	Retries  int           // Retries is the number of attempts after the first
	Delay    time.Duration // Delay is the wait before the first retry; doubled each time
	MaxDelay time.Duration // MaxDelay caps the wait between retries
	Timeout  time.Duration // Timeout bounds a single dial attempt
}

// DefaultRetry is the coordinator dial policy used by participants.
var DefaultRetry = Retry{
	Retries:  3,
	Delay:    2 * time.Second,
	MaxDelay: 8 * time.Second,
	Timeout:  5 * time.Second,
}

// JoinConfig describes how a participant joins a fleet.
type JoinConfig struct {
	Coordinator string // Coordinator is the coordinator's QUIC address
	Advertise   string // Advertise is the address peers dial; defaults to the endpoint address
	RequestedID int    // RequestedID is the preferred id, 0 for none
	Retry       Retry  // Retry is the coordinator dial policy
}

// Gather is the coordinator side of setup. It accepts n participants on a
// listening endpoint and reads every hello before assigning ids, then sends
// each its id and the roster and releases the mesh-ready barrier.
// channels[i] is the link to participant i+1.
func Gather(ctx context.Context, endpoint *network.Endpoint, n int, assigner Assigner) (channels []network.Channel, err error) {
	arrived := make([]*network.Conn, 0, n)
	hellos := make([]hello, 0, n)

	defer func() {
		if err != nil {
			closeConns(arrived)
		}
	}()

	for len(arrived) < n {
		conn, err := endpoint.Accept(ctx)
		if err != nil {
			return nil, err
		}

		h, err := readHello(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}

		arrived = append(arrived, conn)
		hellos = append(hellos, h)
	}

	requests := make([]int, n)
	for i, h := range hellos {
		requests[i] = h.requested
	}

	ids, err := assignAll(assigner, requests)
	if err != nil {
		return nil, fmt.Errorf("assign ids: %w", err)
	}

	conns := make([]*network.Conn, n)
	addrs := make([]string, n)

	for i, id := range ids {
		conns[id-1] = arrived[i]
		addrs[id-1] = hellos[i].addr

		logger.Info("participant joined",
			"id", id,
			"requested", hellos[i].requested,
			"addr", hellos[i].addr,
			"key", network.Fingerprint(arrived[i].RemoteKey()),
		)
	}

	roster := encodeRoster(addrs)
	channels = make([]network.Channel, n)

	for i, conn := range conns {
		if err := conn.Send(byte(i + 1)); err != nil {
			return nil, fmt.Errorf("send id to participant %d: %w", i+1, err)
		}

		if err := conn.WriteFrame(roster); err != nil {
			return nil, fmt.Errorf("send roster to participant %d: %w", i+1, err)
		}

		channels[i] = conn
	}

	if err := barrier.Release(channels, protocol.BarrierSignal, "mesh established"); err != nil {
		return nil, fmt.Errorf("mesh barrier: %w", err)
	}

	return channels, nil
}

// readHello reads a participant's hello frame.
func readHello(conn *network.Conn) (hello, error) {
	frame, err := conn.ReadFrame()
	if err != nil {
		return hello{}, fmt.Errorf("read hello from %s: %w", conn.RemoteAddr(), err)
	}

	h, err := decodeHello(frame)
	if err != nil {
		return hello{}, fmt.Errorf("hello from %s: %w", conn.RemoteAddr(), err)
	}

	return h, nil
}

// Join is the participant side of setup. The endpoint must already be
// listening. Join returns once the whole fleet has crossed the mesh-ready
// barrier.
func Join(ctx context.Context, endpoint *network.Endpoint, cfg JoinConfig) (*Topology, error) {
	advertise := cfg.Advertise
	if advertise == "" {
		advertise = endpoint.Addr()
	}

	coordinator, err := dialCoordinator(ctx, endpoint, cfg.Coordinator, cfg.Retry)
	if err != nil {
		return nil, err
	}

	self, addrs, err := register(coordinator, hello{requested: cfg.RequestedID, addr: advertise})
	if err != nil {
		coordinator.Close()
		return nil, err
	}

	logger.Info("joined fleet", "id", self, "nodes", len(addrs))

	peers, err := connectPeers(ctx, endpoint, self, addrs)
	if err != nil {
		coordinator.Close()
		return nil, err
	}

	topology, err := NewTopology(self, peers, coordinator)
	if err != nil {
		closeChannels(peers)
		coordinator.Close()
		return nil, err
	}

	if err := barrier.Arrive(coordinator, protocol.BarrierSignal); err != nil {
		topology.Close()
		return nil, fmt.Errorf("mesh barrier: %w", err)
	}

	return topology, nil
}

// dialCoordinator dials with exponential backoff, since participants may
// start before the coordinator listens.
func dialCoordinator(ctx context.Context, endpoint *network.Endpoint, addr string, retry Retry) (*network.Conn, error) {
	delay := retry.Delay

	for attempt := 0; ; attempt++ {
		conn, err := dialOnce(ctx, endpoint, addr, retry.Timeout)
		if err == nil {
			return conn, nil
		}

		if attempt >= retry.Retries || ctx.Err() != nil {
			return nil, fmt.Errorf("dial coordinator after %d attempts: %w", attempt+1, err)
		}

		logger.Debug("retrying coordinator connection",
			"addr", addr,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if retry.MaxDelay > 0 && delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
}

// dialOnce makes one bounded dial attempt.
func dialOnce(ctx context.Context, endpoint *network.Endpoint, addr string, timeout time.Duration) (*network.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return endpoint.Dial(ctx, addr)
}

// register sends the hello and reads back the assigned id and roster.
func register(coordinator *network.Conn, h hello) (int, []string, error) {
	if err := coordinator.WriteFrame(encodeHello(h)); err != nil {
		return 0, nil, fmt.Errorf("send hello: %w", err)
	}

	idByte, err := coordinator.Receive()
	if err != nil {
		return 0, nil, fmt.Errorf("receive id: %w", err)
	}

	frame, err := coordinator.ReadFrame()
	if err != nil {
		return 0, nil, fmt.Errorf("receive roster: %w", err)
	}

	addrs, err := decodeRoster(frame)
	if err != nil {
		return 0, nil, err
	}

	self := int(idByte)
	if self < 1 || self > len(addrs) {
		return 0, nil, fmt.Errorf("assigned id %d outside fleet of %d: %w", self, len(addrs), protocol.ErrUnexpectedByte)
	}

	return self, addrs, nil
}

// connectPeers realizes this participant's share of the mesh: it dials every
// higher id, announcing itself with its id byte, and accepts every lower id.
func connectPeers(ctx context.Context, endpoint *network.Endpoint, self int, addrs []string) ([]network.Channel, error) {
	n := len(addrs)
	peers := make([]network.Channel, n)
	accepted := make([]network.Channel, n)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for range self - 1 {
			conn, err := endpoint.Accept(gctx)
			if err != nil {
				return err
			}

			b, err := conn.Receive()
			if err != nil {
				conn.Close()
				return fmt.Errorf("read peer preamble: %w", err)
			}

			from := int(b)
			if from < 1 || from >= self || accepted[from-1] != nil {
				conn.Close()
				return fmt.Errorf("peer preamble %d at participant %d: %w", from, self, protocol.ErrUnexpectedByte)
			}

			accepted[from-1] = conn
			logger.Debug("peer connected", "self", self, "peer", from)
		}

		return nil
	})

	g.Go(func() error {
		for j := self + 1; j <= n; j++ {
			conn, err := endpoint.Dial(gctx, addrs[j-1])
			if err != nil {
				return fmt.Errorf("dial participant %d: %w", j, err)
			}

			peers[j-1] = conn

			if err := conn.Send(byte(self)); err != nil {
				return fmt.Errorf("announce to participant %d: %w", j, err)
			}

			logger.Debug("peer connected", "self", self, "peer", j)
		}

		return nil
	})

	err := g.Wait()

	for i, ch := range accepted {
		if ch != nil {
			peers[i] = ch
		}
	}

	if err != nil {
		closeChannels(peers)
		return nil, err
	}

	return peers, nil
}

// closeConns closes every non-nil connection.
func closeConns(conns []*network.Conn) {
	for _, c := range conns {
		if c != nil {
			c.Close()
		}
	}
}

// closeChannels closes every non-nil channel.
func closeChannels(channels []network.Channel) error {
	var errs []error

	for _, ch := range channels {
		if ch != nil {
			errs = append(errs, ch.Close())
		}
	}

	return errors.Join(errs...)
}
