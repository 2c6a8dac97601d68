package session

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"PhaseKing/internal/fault"
	"PhaseKing/internal/logger"
	"PhaseKing/internal/mesh"
	"PhaseKing/internal/network"
	"PhaseKing/internal/phaseking"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
)

// recordingChannel records what the driver does to it.
type recordingChannel struct {
	mu       sync.Mutex
	sent     []byte
	closes   int
	sendErr  error
	closeErr error
}

func (c *recordingChannel) Send(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, b)
	return c.sendErr
}

func (c *recordingChannel) Receive() (byte, error) {
	return 0, network.ErrClosed
}

func (c *recordingChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return c.closeErr
}

// collector keeps every observed result.
type collector struct {
	results []Result
}

func (c *collector) Observe(r Result) error {
	c.results = append(c.results, r)
	return nil
}

// startFleet serves n participants over an in-memory mesh.
func startFleet(t *testing.T, n int, seed random.Seed) ([]network.Channel, *errgroup.Group) {
	t.Helper()

	coord, topologies, err := mesh.NewMemory(n)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}

	var g errgroup.Group
	for i, topo := range topologies {
		p, err := phaseking.NewParticipant(topo, seed.Source(random.ParticipantLabel(i+1)))
		if err != nil {
			t.Fatalf("new participant: %v", err)
		}
		g.Go(p.Serve)
	}

	return coord, &g
}

// TestClassify checks the verdict rule, sentinels excluded.
func TestClassify(t *testing.T) {
	tests := []struct {
		tally protocol.Tally
		want  Verdict
	}{
		{protocol.Tally{True: 3}, Reached},
		{protocol.Tally{False: 7}, Reached},
		{protocol.Tally{True: 3, False: 1}, NotReached},
		{protocol.Tally{}, NotReached},
	}

	for _, tt := range tests {
		if got := Classify(tt.tally); got != tt.want {
			t.Errorf("Classify(%+v) = %v, want %v", tt.tally, got, tt.want)
		}
	}
}

// TestAllHonestFour runs one session of four honest participants.
func TestAllHonestFour(t *testing.T) {
	coord, g := startFleet(t, 4, random.Seed{10})

	d, err := NewDriver(coord, random.Seed{10}.Source(random.CoordinatorLabel))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	if d.Params().MaxByzantine != 0 {
		t.Fatalf("N=4 tolerates %d, want 0", d.Params().MaxByzantine)
	}

	r, err := d.Run(0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if r.Verdict != Reached || r.Tally.True+r.Tally.False != 4 || len(r.Adversaries) != 0 {
		t.Errorf("result %+v", r)
	}

	if err := d.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

// TestEightNodesHundredSessions runs a hundred sessions of eight with one
// adversary each and expects no failure.
func TestEightNodesHundredSessions(t *testing.T) {
	coord, g := startFleet(t, 8, random.Seed{11})

	var seen collector
	d, err := NewDriver(coord, random.Seed{11}.Source(random.CoordinatorLabel), &seen)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	for i := 0; i < 100; i++ {
		r, err := d.Run(i)
		if err != nil {
			t.Fatalf("session %d: %v", i, err)
		}

		if r.Verdict != Reached {
			t.Fatalf("session %d: %+v", i, r)
		}

		if len(r.Adversaries) != 1 || r.Tally.True+r.Tally.False != 7 {
			t.Fatalf("session %d: adversaries %v tally %+v", i, r.Adversaries, r.Tally)
		}
	}

	if len(seen.results) != 100 || seen.results[99].Index != 99 {
		t.Errorf("observer saw %d results", len(seen.results))
	}

	if err := d.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

// TestAdversarialKing pins the adversary on the only king of a five-node
// fleet's first phase; the second king is honest and agreement holds.
func TestAdversarialKing(t *testing.T) {
	coord, g := startFleet(t, 5, random.Seed{12})

	d, err := NewDriver(coord, random.Seed{12}.Source(random.CoordinatorLabel))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	for i := 0; i < 20; i++ {
		r, err := d.RunWith(i, fault.FromAdversaries(5, []int{1}))
		if err != nil {
			t.Fatalf("session %d: %v", i, err)
		}
		if r.Verdict != Reached {
			t.Fatalf("session %d: %+v", i, r)
		}
	}

	d.Terminate()
	if err := g.Wait(); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

// TestTerminate checks every participant gets 255 as its last byte and every
// channel is closed exactly once, even when one of them fails.
func TestTerminate(t *testing.T) {
	chans := make([]*recordingChannel, 4)
	channels := make([]network.Channel, 4)
	for i := range chans {
		chans[i] = &recordingChannel{}
		channels[i] = chans[i]
	}

	boom := errors.New("boom")
	chans[1].sendErr = boom
	chans[2].closeErr = boom

	d, err := NewDriver(channels, random.Seed{}.Source(random.CoordinatorLabel))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	err = d.Terminate()
	if !errors.Is(err, boom) {
		t.Fatalf("terminate error = %v, want boom", err)
	}

	if err := d.Terminate(); err != nil {
		t.Fatalf("second terminate: %v", err)
	}

	for i, c := range chans {
		if len(c.sent) == 0 || c.sent[len(c.sent)-1] != protocol.Terminate {
			t.Errorf("participant %d last byte: %v", i+1, c.sent)
		}
		if c.closes != 1 {
			t.Errorf("participant %d closed %d times, want 1", i+1, c.closes)
		}
	}

	if _, err := d.Run(0); !errors.Is(err, network.ErrClosed) {
		t.Errorf("run after terminate: %v, want ErrClosed", err)
	}
}

// TestBarrierLogNumbersPhasesFromOne checks the round-over lines count
// phases from 1.
func TestBarrierLogNumbersPhasesFromOne(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(logger.NewHandler(&buf, slog.LevelInfo)))
	defer slog.SetDefault(prev)

	coord, g := startFleet(t, 5, random.Seed{12})

	d, err := NewDriver(coord, random.Seed{12}.Source(random.CoordinatorLabel))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	if _, err := d.Run(0); err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := d.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("serve: %v", err)
	}

	out := buf.String()
	for _, line := range []string{"1:1 over", "1:2 over", "2:1 over", "2:2 over"} {
		if !strings.Contains(out, line) {
			t.Errorf("log lacks %q", line)
		}
	}

	if strings.Contains(out, "0:1 over") || strings.Contains(out, "3:1 over") {
		t.Errorf("log numbers phases from 0:\n%s", out)
	}
}
