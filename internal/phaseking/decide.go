// Package phaseking implements one participant of the Phase King protocol:
// f+1 phases of two rounds each, in lock-step with the rest of the fleet.
package phaseking

import "PhaseKing/internal/protocol"

// Decide is the round-2 rule of a participant that is not king. The round-1
// majority is kept when more than N/2+f participants carried it; otherwise
// the king's tiebreaker wins.
func Decide(params protocol.Params, majority bool, majCount int, tiebreaker bool) bool {
	if majCount > params.Threshold() {
		return majority
	}

	return tiebreaker
}
