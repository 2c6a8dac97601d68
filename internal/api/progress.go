package api

import (
	"encoding/hex"
	"sync"
	"time"

	"PhaseKing/internal/protocol"
	"PhaseKing/internal/session"
)

// Status is the JSON body of GET /status.
type Status struct {
	RunID        string    `json:"runId,omitempty"`
	Nodes        int       `json:"nodes"`
	MaxByzantine int       `json:"maxByzantine"`
	Threshold    int       `json:"threshold"`
	Planned      int       `json:"planned"`
	Completed    int       `json:"completed"`
	Failures     int       `json:"failures"`
	Started      time.Time `json:"started"`
	Done         bool      `json:"done"`
	Summary      string    `json:"summary,omitempty"`
}

// Tracker follows a run as a session observer and reports it as Status.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex // mu guards status
	status Status     // status is the latest snapshot
}

// NewTracker creates a tracker for a run of planned sessions.
func NewTracker(runID string, params protocol.Params, planned int) *Tracker {
	return &Tracker{status: Status{
		RunID:        runID,
		Nodes:        params.NodeCount,
		MaxByzantine: params.MaxByzantine,
		Threshold:    params.Threshold(),
		Planned:      planned,
		Started:      time.Now().UTC(),
	}}
}

// Observe implements session.Observer.
func (t *Tracker) Observe(r session.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Completed++
	if r.Verdict == session.NotReached {
		t.status.Failures++
	}

	return nil
}

// Finish marks the run done with its summary line.
func (t *Tracker) Finish(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Done = true
	t.status.Summary = summary
}

// Snapshot implements ProgressProvider.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// seedHex renders a seed for JSON.
func seedHex(seed [32]byte) string {
	return hex.EncodeToString(seed[:])
}
