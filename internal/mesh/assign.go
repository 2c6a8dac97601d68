package mesh

import (
	"fmt"

	"PhaseKing/internal/logger"
)

// Assigner hands out participant ids as participants join.
type Assigner interface {
	// Assign returns the id for a joining participant. requested is 0 when the
	// participant has no preference.
	Assign(requested int) (int, error)
}

// ArrivalOrder gives each participant the id it asked for, or the lowest free
// id when it asked for none.
type ArrivalOrder struct {
	taken []bool // taken[i] is set once id i+1 is handed out
}

// NewArrivalOrder creates an assigner for a fleet of n.
func NewArrivalOrder(n int) *ArrivalOrder {
	return &ArrivalOrder{taken: make([]bool, n)}
}

// Assign implements Assigner.
func (a *ArrivalOrder) Assign(requested int) (int, error) {
	if requested != 0 {
		if requested < 1 || requested > len(a.taken) {
			return 0, fmt.Errorf("requested id %d outside fleet of %d", requested, len(a.taken))
		}

		if a.taken[requested-1] {
			return 0, fmt.Errorf("requested id %d already assigned", requested)
		}

		a.taken[requested-1] = true

		return requested, nil
	}

	for i, taken := range a.taken {
		if !taken {
			a.taken[i] = true
			return i + 1, nil
		}
	}

	return 0, fmt.Errorf("fleet of %d is full", len(a.taken))
}

// assignAll gives ids to every participant of a gathered fleet. Requested ids
// are handed out before anyone without a preference is placed, so the result
// does not depend on arrival order. A request that cannot be honored falls
// back to the lowest free id.
func assignAll(assigner Assigner, requests []int) ([]int, error) {
	ids := make([]int, len(requests))
	seen := make([]bool, len(requests))

	place := func(i, id int) error {
		if id < 1 || id > len(requests) || seen[id-1] {
			return fmt.Errorf("assigner returned invalid id %d", id)
		}

		seen[id-1] = true
		ids[i] = id

		return nil
	}

	for i, req := range requests {
		if req == 0 {
			continue
		}

		id, err := assigner.Assign(req)
		if err != nil {
			logger.Warn("requested id not honored", "requested", req, "error", err)
			continue
		}

		if err := place(i, id); err != nil {
			return nil, err
		}
	}

	for i := range requests {
		if ids[i] != 0 {
			continue
		}

		id, err := assigner.Assign(0)
		if err != nil {
			return nil, err
		}

		if err := place(i, id); err != nil {
			return nil, err
		}
	}

	return ids, nil
}
