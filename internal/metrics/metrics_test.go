package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"PhaseKing/internal/protocol"
	"PhaseKing/internal/session"
)

// TestObserve checks counters follow observed sessions.
func TestObserve(t *testing.T) {
	m := New(8)
	m.SetPlanned(6)

	m.Observe(session.Result{Tally: protocol.Tally{True: 7}, Verdict: session.Reached, Adversaries: []int{3}, Duration: time.Millisecond})
	m.Observe(session.Result{Tally: protocol.Tally{False: 7}, Verdict: session.Reached, Adversaries: []int{5}, Duration: time.Millisecond})
	m.Observe(session.Result{Tally: protocol.Tally{True: 4, False: 3}, Verdict: session.NotReached, Adversaries: []int{1}, Duration: time.Millisecond})

	if got := testutil.ToFloat64(m.sessions.WithLabelValues(session.Reached.String())); got != 2 {
		t.Errorf("reached = %v, want 2", got)
	}

	if got := testutil.ToFloat64(m.sessions.WithLabelValues(session.NotReached.String())); got != 1 {
		t.Errorf("not reached = %v, want 1", got)
	}

	if got := testutil.ToFloat64(m.adversaries); got != 3 {
		t.Errorf("adversaries = %v, want 3", got)
	}

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("true")); got != 11 {
		t.Errorf("true decisions = %v, want 11", got)
	}

	if got := testutil.ToFloat64(m.nodes); got != 8 {
		t.Errorf("nodes = %v, want 8", got)
	}

	if got := testutil.ToFloat64(m.planned); got != 6 {
		t.Errorf("planned = %v, want 6", got)
	}

	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("duration collected %d series, want 1", n)
	}
}

// TestHandler checks the text exposition carries the namespace.
func TestHandler(t *testing.T) {
	m := New(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"phaseking_nodes 4", `phaseking_sessions_total{verdict="consensus reached"} 0`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
