package phaseking

import (
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"

	"PhaseKing/internal/barrier"
	"PhaseKing/internal/mesh"
	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
)

// fleet starts n participants serving over an in-memory mesh.
func fleet(t *testing.T, n int, seed random.Seed) ([]network.Channel, []*Participant, *errgroup.Group) {
	t.Helper()

	coord, topologies, err := mesh.NewMemory(n)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}

	participants := make([]*Participant, n)
	for i, topo := range topologies {
		participants[i], err = NewParticipant(topo, seed.Source(random.ParticipantLabel(i+1)))
		if err != nil {
			t.Fatalf("new participant: %v", err)
		}
	}

	return coord, participants, new(errgroup.Group)
}

// serve runs every participant's command loop on g.
func serve(g *errgroup.Group, participants []*Participant) {
	for _, p := range participants {
		g.Go(p.Serve)
	}
}

// drive plays the coordinator for one session and returns the outcomes.
func drive(t *testing.T, coord []network.Channel, params protocol.Params, roles []protocol.Role) []protocol.Outcome {
	t.Helper()

	for i, ch := range coord {
		if err := ch.Send(roles[i].Byte()); err != nil {
			t.Fatalf("send role: %v", err)
		}
	}

	for phase := 0; phase < params.PhaseCount; phase++ {
		for round := 0; round < 2; round++ {
			if err := barrier.Release(coord, protocol.BarrierSignal, ""); err != nil {
				t.Fatalf("phase %d round %d: %v", phase, round+1, err)
			}
		}
	}

	outcomes := make([]protocol.Outcome, len(coord))
	for i, ch := range coord {
		b, err := ch.Receive()
		if err != nil {
			t.Fatalf("receive outcome: %v", err)
		}
		if outcomes[i], err = protocol.ParseOutcome(b); err != nil {
			t.Fatalf("participant %d: %v", i+1, err)
		}
	}

	return outcomes
}

// terminate sends 255 to everyone and waits for the command loops.
func terminate(t *testing.T, coord []network.Channel, g *errgroup.Group) {
	t.Helper()

	for _, ch := range coord {
		ch.Send(protocol.Terminate)
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("serve: %v", err)
	}

	for _, ch := range coord {
		ch.Close()
	}
}

// TestDecide checks the round-2 threshold is strict.
func TestDecide(t *testing.T) {
	four, _ := protocol.NewParams(4)
	eight, _ := protocol.NewParams(8)

	tests := []struct {
		name       string
		params     protocol.Params
		majority   bool
		majCount   int
		tiebreaker bool
		want       bool
	}{
		{"N=4 at threshold follows king", four, false, 2, true, true},
		{"N=4 above threshold keeps majority", four, false, 3, true, false},
		{"N=8 at threshold follows king", eight, true, 5, false, false},
		{"N=8 above threshold keeps majority", eight, true, 6, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.params, tt.majority, tt.majCount, tt.tiebreaker)
			if got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAllHonestReach checks a fleet of four honest participants agrees.
func TestAllHonestReach(t *testing.T) {
	coord, participants, g := fleet(t, 4, random.Seed{1})
	serve(g, participants)

	params := participants[0].Params()
	roles := make([]protocol.Role, 4)

	for s := 0; s < 10; s++ {
		var tally protocol.Tally
		for _, o := range drive(t, coord, params, roles) {
			if _, ok := o.Value(); !ok {
				t.Fatalf("session %d: honest participant without decision", s)
			}
			tally.AddOutcome(o)
		}

		if !tally.Unanimous() {
			t.Fatalf("session %d: tally %+v", s, tally)
		}
	}

	terminate(t, coord, g)

	for _, p := range participants {
		if p.Sessions() != 10 {
			t.Errorf("participant sessions = %d, want 10", p.Sessions())
		}
	}
}

// TestTieAdoptsTiebreaker splits four honest estimates 2-2. Nobody holds an
// overwhelming majority, so everyone takes the king's tie-broken value.
func TestTieAdoptsTiebreaker(t *testing.T) {
	coord, participants, g := fleet(t, 4, random.Seed{2})

	for i, p := range participants {
		start := i < 2
		p.initial = func() bool { return start }
	}

	serve(g, participants)

	outcomes := drive(t, coord, participants[0].Params(), make([]protocol.Role, 4))
	for i, o := range outcomes {
		if o != protocol.Decided(false) {
			t.Errorf("participant %d decided %v, want false", i+1, o)
		}
	}

	terminate(t, coord, g)
}

// TestAgreementWithAdversaries places f adversaries at random, kings
// included, and checks every honest participant agrees.
func TestAgreementWithAdversaries(t *testing.T) {
	for _, n := range []int{5, 8, 9, 13} {
		seed := random.Seed{byte(n)}
		coord, participants, g := fleet(t, n, seed)
		serve(g, participants)

		params := participants[0].Params()
		rng := seed.Source("test")

		for s := 0; s < 20; s++ {
			roles := make([]protocol.Role, n)
			for _, i := range rng.Perm(n)[:params.MaxByzantine] {
				roles[i] = protocol.Adversarial
			}

			var tally protocol.Tally
			for i, o := range drive(t, coord, params, roles) {
				_, decided := o.Value()
				if decided != (roles[i] == protocol.Honest) {
					t.Fatalf("N=%d session %d: participant %d role %v outcome %v", n, s, i+1, roles[i], o)
				}
				tally.AddOutcome(o)
			}

			if !tally.Unanimous() {
				t.Fatalf("N=%d session %d: honest participants disagree: %+v", n, s, tally)
			}
		}

		terminate(t, coord, g)
	}
}

// TestServeUnknownCommand checks a stray command byte ends the loop with an error.
func TestServeUnknownCommand(t *testing.T) {
	coord, participants, _ := fleet(t, 2, random.Seed{})

	coord[0].Send(7)

	err := participants[0].Serve()
	if !errors.Is(err, protocol.ErrUnexpectedByte) {
		t.Errorf("serve error = %v, want ErrUnexpectedByte", err)
	}
}

// TestServeTerminateCloses checks 255 closes every channel of the participant.
func TestServeTerminateCloses(t *testing.T) {
	coord, participants, _ := fleet(t, 3, random.Seed{})

	coord[0].Send(protocol.Terminate)

	if err := participants[0].Serve(); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if _, err := coord[0].Receive(); !errors.Is(err, network.ErrClosed) {
		t.Errorf("coordinator link after terminate: %v, want ErrClosed", err)
	}

	// Participant 2 sees its channel to 1 closed.
	peer := participants[1]
	if _, err := peer.topology.Peer(1).Receive(); !errors.Is(err, network.ErrClosed) {
		t.Errorf("peer channel after terminate: %v, want ErrClosed", err)
	}
}
