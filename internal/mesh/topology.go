// Package mesh builds the full-mesh topology of a Phase King fleet: every
// participant holds one channel to every other participant and one to the
// coordinator.
package mesh

import (
	"errors"
	"fmt"

	"PhaseKing/internal/network"
)

// Topology is one participant's view of the mesh.
type Topology struct {
	self        int               // self is this participant's id
	peers       []network.Channel // peers[j-1] is the channel to participant j; nil at self
	coordinator network.Channel   // coordinator is the link to the coordinator
}

// NewTopology assembles a topology from already-established channels.
// peers must have one entry per participant, nil at index self-1.
func NewTopology(self int, peers []network.Channel, coordinator network.Channel) (*Topology, error) {
	if self < 1 || self > len(peers) {
		return nil, fmt.Errorf("id %d outside fleet of %d", self, len(peers))
	}

	for i, ch := range peers {
		id := i + 1
		if id == self && ch != nil {
			return nil, fmt.Errorf("participant %d has a channel to itself", self)
		}
		if id != self && ch == nil {
			return nil, fmt.Errorf("participant %d has no channel to %d", self, id)
		}
	}

	if coordinator == nil {
		return nil, fmt.Errorf("participant %d has no coordinator channel", self)
	}

	return &Topology{self: self, peers: peers, coordinator: coordinator}, nil
}

// Self returns this participant's id.
func (t *Topology) Self() int {
	return t.self
}

// Size returns the number of participants in the fleet.
func (t *Topology) Size() int {
	return len(t.peers)
}

// Peer returns the channel to participant id. It panics on self or an unknown id.
func (t *Topology) Peer(id int) network.Channel {
	ch := t.peers[id-1]
	if ch == nil {
		panic(fmt.Sprintf("mesh: participant %d has no channel to %d", t.self, id))
	}

	return ch
}

// Coordinator returns the link to the coordinator.
func (t *Topology) Coordinator() network.Channel {
	return t.coordinator
}

// Close closes every peer channel in ascending id order, then the coordinator link.
func (t *Topology) Close() error {
	var errs []error

	for i, ch := range t.peers {
		if ch == nil {
			continue
		}
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close peer %d: %w", i+1, err))
		}
	}

	if err := t.coordinator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close coordinator: %w", err))
	}

	return errors.Join(errs...)
}

// NewMemory wires a complete in-process fleet of n participants.
// coordinator[i] is the coordinator's channel to participant i+1.
func NewMemory(n int) (coordinator []network.Channel, participants []*Topology, err error) {
	peers := make([][]network.Channel, n)
	for i := range peers {
		peers[i] = make([]network.Channel, n)
	}

	// One pipe per unordered pair.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			peers[i][j], peers[j][i] = network.Pipe()
		}
	}

	coordinator = make([]network.Channel, n)
	participants = make([]*Topology, n)

	for i := 0; i < n; i++ {
		var up network.Channel
		coordinator[i], up = network.Pipe()

		participants[i], err = NewTopology(i+1, peers[i], up)
		if err != nil {
			return nil, nil, err
		}
	}

	return coordinator, participants, nil
}
