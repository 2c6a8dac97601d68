// Package fault picks which participants misbehave in a session and tells
// every participant its role.
package fault

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"PhaseKing/internal/network"
	"PhaseKing/internal/protocol"
)

// Sample returns k distinct ids from 1..n, every k-subset equally likely,
// sorted ascending. It uses Floyd's algorithm: k draws, no rejection.
func Sample(rng *rand.Rand, n, k int) []int {
	if k < 0 || k > n {
		panic(fmt.Sprintf("fault: sample %d of %d", k, n))
	}

	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)

	for j := n - k + 1; j <= n; j++ {
		t := rng.IntN(j) + 1
		if _, taken := chosen[t]; taken {
			t = j
		}

		chosen[t] = struct{}{}
		out = append(out, t)
	}

	slices.Sort(out)

	return out
}

// Assignment is the role of every participant for one session.
type Assignment struct {
	roles       []protocol.Role // roles[i] is the role of participant i+1
	adversaries []int           // adversaries lists adversarial ids, ascending
}

// Assign marks exactly params.MaxByzantine participants adversarial.
func Assign(rng *rand.Rand, params protocol.Params) Assignment {
	return FromAdversaries(params.NodeCount, Sample(rng, params.NodeCount, params.MaxByzantine))
}

// FromAdversaries builds an assignment with the given adversarial ids.
func FromAdversaries(n int, adversaries []int) Assignment {
	roles := make([]protocol.Role, n)
	for _, id := range adversaries {
		roles[id-1] = protocol.Adversarial
	}

	return Assignment{roles: roles, adversaries: slices.Clone(adversaries)}
}

// Role returns the role of participant id.
func (a Assignment) Role(id int) protocol.Role {
	return a.roles[id-1]
}

// Adversaries returns the adversarial ids in ascending order.
func (a Assignment) Adversaries() []int {
	return a.adversaries
}

// Size returns the number of participants covered.
func (a Assignment) Size() int {
	return len(a.roles)
}

// Dispatch sends every participant its role byte. channels[i] is the link
// to participant i+1.
func Dispatch(channels []network.Channel, a Assignment) error {
	if len(channels) != len(a.roles) {
		return fmt.Errorf("dispatch %d roles to %d participants", len(a.roles), len(channels))
	}

	for i, ch := range channels {
		if err := ch.Send(a.roles[i].Byte()); err != nil {
			return fmt.Errorf("send role to participant %d: %w", i+1, err)
		}
	}

	return nil
}
