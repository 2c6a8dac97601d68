package client

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"PhaseKing/internal/api"
	"PhaseKing/internal/attest"
	"PhaseKing/internal/cluster"
	"PhaseKing/internal/ledger"
	"PhaseKing/internal/metrics"
	"PhaseKing/internal/modelcheck"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/random"
)

// coordinator runs a sealed model check on an in-process fleet and serves
// its status API.
func coordinator(t *testing.T, sessions int) (*Client, uuid.UUID) {
	t.Helper()

	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	seed, err := random.NewSeed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	params, _ := protocol.NewParams(5)
	plan, _ := modelcheck.FixedPlan(sessions)

	run := store.NewRun()
	m := metrics.New(params.NodeCount)
	tracker := api.NewTracker(run.ID().String(), params, plan.Sessions)

	fleet, err := cluster.StartMemory(params.NodeCount, seed, run, m, tracker)
	if err != nil {
		t.Fatalf("start fleet: %v", err)
	}

	report, err := modelcheck.Check(fleet.Driver(), plan)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if err := fleet.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	tracker.Finish(report.Summary())

	signer, err := attest.Generate()
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	v := ledger.Verdict{
		RunID:     run.ID(),
		NodeCount: 5,
		Sessions:  report.Sessions,
		Failures:  report.Failures,
		Seed:      seed,
	}
	v.Sign(signer)

	if err := run.Seal(v); err != nil {
		t.Fatalf("seal: %v", err)
	}

	srv := httptest.NewServer(api.New("", tracker, store, m.Handler()).Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), run.ID()
}

// TestStatusAfterRun checks the client reads the finished run's progress.
func TestStatusAfterRun(t *testing.T) {
	c, id := coordinator(t, 12)

	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}

	st, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	if st.RunID != id.String() || st.Completed != 12 || st.Failures != 0 || !st.Done {
		t.Errorf("status %+v", st)
	}

	if st.MaxByzantine != 1 || st.Threshold != 3 {
		t.Errorf("params f=%d t=%d, want 1 and 3", st.MaxByzantine, st.Threshold)
	}

	if st.Summary != "consensus reached in all 12 sessions" {
		t.Errorf("summary %q", st.Summary)
	}
}

// TestRunsAndFetch checks a sealed run is listed and its archive verifies.
func TestRunsAndFetch(t *testing.T) {
	c, id := coordinator(t, 7)

	runs, err := c.Runs()
	if err != nil {
		t.Fatalf("runs: %v", err)
	}

	if len(runs) != 1 || runs[0].RunID != id.String() || !runs[0].Valid {
		t.Fatalf("runs %+v", runs)
	}

	archive, raw, err := c.Fetch(id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(raw) == 0 || len(archive.Records) != 7 {
		t.Fatalf("archive of %d bytes with %d records", len(raw), len(archive.Records))
	}

	for i, rec := range archive.Records {
		if rec.Index != i || !rec.Reached || rec.True+rec.False != 4 {
			t.Errorf("record %d: %+v", i, rec)
		}
	}
}

// TestFetchUnknownRun checks a missing run surfaces the server's message.
func TestFetchUnknownRun(t *testing.T) {
	c, _ := coordinator(t, 1)

	_, _, err := c.Fetch(uuid.New())
	if err == nil {
		t.Fatal("unknown run fetched")
	}

	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error %q, want a 404", err)
	}
}

// TestNewClientAddress checks bare addresses get a scheme.
func TestNewClientAddress(t *testing.T) {
	if c := NewClient("127.0.0.1:8080"); c.baseURL != "http://127.0.0.1:8080" {
		t.Errorf("base %q", c.baseURL)
	}

	if c := NewClient("https://status.example/"); c.baseURL != "https://status.example" {
		t.Errorf("base %q", c.baseURL)
	}
}
