package protocol

import "fmt"

// MaxNodes is the largest fleet whose ids fit below the reserved wire bytes.
const MaxNodes = 127

// Params holds the fleet-wide constants of a Phase King run.
// It is built once by NewParams and never mutated.
type Params struct {
	NodeCount    int // NodeCount is N, the number of participants
	MaxByzantine int // MaxByzantine is f, the number of adversarial participants tolerated
	PhaseCount   int // PhaseCount is f+1, the number of phases per session
}

// NewParams derives f = ceil(N/4) - 1 and the phase count for n participants.
func NewParams(n int) (Params, error) {
	if n < 1 || n > MaxNodes {
		return Params{}, fmt.Errorf("node count %d out of range [1, %d]", n, MaxNodes)
	}

	f := (n+3)/4 - 1

	return Params{
		NodeCount:    n,
		MaxByzantine: f,
		PhaseCount:   f + 1,
	}, nil
}

// King returns the id of the king of the given phase.
func (p Params) King(phase int) int {
	return phase + 1
}

// Kings returns the king of every phase in order.
func (p Params) Kings() []int {
	kings := make([]int, p.PhaseCount)
	for phase := range kings {
		kings[phase] = p.King(phase)
	}

	return kings
}

// Threshold is the Round-1 count a majority must exceed to override the king.
func (p Params) Threshold() int {
	return p.NodeCount/2 + p.MaxByzantine
}

// ValidID reports whether id names a participant of this fleet.
func (p Params) ValidID(id int) bool {
	return id >= 1 && id <= p.NodeCount
}

// String summarizes the parameters for startup logs.
func (p Params) String() string {
	return fmt.Sprintf("N=%d f=%d phases=%d threshold=%d", p.NodeCount, p.MaxByzantine, p.PhaseCount, p.Threshold())
}
