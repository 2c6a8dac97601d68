package mesh

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"PhaseKing/internal/types"
)

// hello is what a participant tells the coordinator when it joins.
type hello struct {
	requested int    // requested is the preferred id, 0 for none
	addr      string // addr is where the participant accepts peer connections
}

// encodeHello builds the Hello frame.
func encodeHello(h hello) []byte {
	builder := flatbuffers.NewBuilder(64)
	addr := builder.CreateString(h.addr)

	types.HelloStart(builder)
	types.HelloAddRequestedId(builder, byte(h.requested))
	types.HelloAddAddr(builder, addr)
	builder.Finish(types.HelloEnd(builder))

	return builder.FinishedBytes()
}

// decodeHello parses a Hello frame received from an untrusted participant.
func decodeHello(data []byte) (h hello, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed hello: %v", r)
		}
	}()

	if len(data) < 8 {
		return hello{}, fmt.Errorf("hello too short: %d bytes", len(data))
	}

	fb := types.GetRootAsHello(data, 0)

	h = hello{requested: int(fb.RequestedId()), addr: string(fb.Addr())}
	if h.addr == "" {
		return hello{}, fmt.Errorf("hello without address")
	}

	return h, nil
}

// encodeRoster builds the Roster frame. addrs[i] is the address of participant i+1.
func encodeRoster(addrs []string) []byte {
	builder := flatbuffers.NewBuilder(64 * len(addrs))

	entries := make([]flatbuffers.UOffsetT, len(addrs))
	for i, a := range addrs {
		addr := builder.CreateString(a)

		types.PeerEntryStart(builder)
		types.PeerEntryAddId(builder, byte(i+1))
		types.PeerEntryAddAddr(builder, addr)
		entries[i] = types.PeerEntryEnd(builder)
	}

	types.RosterStartPeersVector(builder, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entries[i])
	}
	peers := builder.EndVector(len(entries))

	types.RosterStart(builder)
	types.RosterAddPeers(builder, peers)
	builder.Finish(types.RosterEnd(builder))

	return builder.FinishedBytes()
}

// decodeRoster parses a Roster frame into addresses indexed by id-1.
// Every id 1..N must appear exactly once.
func decodeRoster(data []byte) (addrs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed roster: %v", r)
		}
	}()

	if len(data) < 8 {
		return nil, fmt.Errorf("roster too short: %d bytes", len(data))
	}

	fb := types.GetRootAsRoster(data, 0)
	n := fb.PeersLength()
	if n == 0 {
		return nil, fmt.Errorf("empty roster")
	}

	addrs = make([]string, n)

	var entry types.PeerEntry
	for j := 0; j < n; j++ {
		fb.Peers(&entry, j)

		id := int(entry.Id())
		if id < 1 || id > n {
			return nil, fmt.Errorf("roster id %d outside fleet of %d", id, n)
		}

		if addrs[id-1] != "" {
			return nil, fmt.Errorf("roster lists id %d twice", id)
		}

		addrs[id-1] = string(entry.Addr())
		if addrs[id-1] == "" {
			return nil, fmt.Errorf("roster id %d without address", id)
		}
	}

	return addrs, nil
}
