package ledger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"PhaseKing/internal/attest"
	"PhaseKing/internal/protocol"
	"PhaseKing/internal/session"
)

// openStore opens a store in a temp directory, closed at cleanup.
func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// results returns n finished sessions, the last one failed.
func results(n int) []session.Result {
	out := make([]session.Result, n)
	for i := range out {
		out[i] = session.Result{
			Index:       i,
			Tally:       protocol.Tally{True: 7},
			Verdict:     session.Reached,
			Adversaries: []int{i%8 + 1},
			Duration:    time.Duration(i+1) * time.Millisecond,
		}
	}
	out[n-1].Tally = protocol.Tally{True: 4, False: 3}
	out[n-1].Verdict = session.NotReached

	return out
}

// sealed records a signed run of n sessions.
func sealed(t *testing.T, s *Store, n int) *Run {
	t.Helper()

	run := s.NewRun()
	for _, r := range results(n) {
		if err := run.Observe(r); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	signer, err := attest.Generate()
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	v := Verdict{
		RunID:        run.ID(),
		NodeCount:    8,
		Sessions:     n,
		Failures:     1,
		SuccessRatio: 0.99,
		Confidence:   0.95,
		Bound:        "legacy",
		Seed:         [32]byte{9},
	}
	v.Sign(signer)

	if err := run.Seal(v); err != nil {
		t.Fatalf("seal: %v", err)
	}

	return run
}

// TestRecordsInOrder checks sessions come back in index order, past 255.
func TestRecordsInOrder(t *testing.T) {
	s := openStore(t)
	run := sealed(t, s, 300)

	records, err := run.Records()
	if err != nil {
		t.Fatalf("records: %v", err)
	}

	if len(records) != 300 {
		t.Fatalf("got %d records, want 300", len(records))
	}

	for i, rec := range records {
		if rec.Index != i {
			t.Fatalf("record %d has index %d", i, rec.Index)
		}
	}

	last := records[299]
	if last.Reached || last.True != 4 || last.False != 3 || last.Duration != 300*time.Millisecond {
		t.Errorf("last record %+v", last)
	}

	if len(records[10].Adversaries) != 1 || records[10].Adversaries[0] != 3 {
		t.Errorf("record 10 adversaries %v", records[10].Adversaries)
	}
}

// TestRunsAreSeparate checks two runs in one store do not mix.
func TestRunsAreSeparate(t *testing.T) {
	s := openStore(t)
	a := sealed(t, s, 3)
	b := sealed(t, s, 5)

	ra, _ := a.Records()
	rb, _ := b.Records()
	if len(ra) != 3 || len(rb) != 5 {
		t.Fatalf("records %d and %d, want 3 and 5", len(ra), len(rb))
	}

	verdicts, err := s.Verdicts()
	if err != nil {
		t.Fatalf("verdicts: %v", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(verdicts))
	}

	if _, ok, err := s.Run(uuid.New()).Verdict(); ok || err != nil {
		t.Errorf("unknown run: ok=%v err=%v", ok, err)
	}
}

// TestSealRejectsForeignVerdict checks a verdict is only sealed into its own run.
func TestSealRejectsForeignVerdict(t *testing.T) {
	s := openStore(t)
	run := s.NewRun()

	if err := run.Seal(Verdict{RunID: uuid.New()}); err == nil {
		t.Error("foreign verdict sealed")
	}
}

// TestExportImport moves a run between stores and checks it survives intact
// with a valid signature.
func TestExportImport(t *testing.T) {
	src := openStore(t)
	run := sealed(t, src, 6)

	data, err := run.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := openStore(t)
	id, err := dst.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if id != run.ID() {
		t.Fatalf("imported run %s, want %s", id, run.ID())
	}

	v, ok, err := dst.Run(id).Verdict()
	if err != nil || !ok {
		t.Fatalf("verdict: ok=%v err=%v", ok, err)
	}

	if !v.Verify() {
		t.Error("imported verdict signature does not verify")
	}

	if v.Sessions != 6 || v.Failures != 1 || v.Bound != "legacy" || v.Seed[0] != 9 {
		t.Errorf("verdict %+v", v)
	}

	records, _ := dst.Run(id).Records()
	if len(records) != 6 {
		t.Errorf("imported %d records, want 6", len(records))
	}
}

// TestExportUnsealed checks a run without verdict cannot be exported.
func TestExportUnsealed(t *testing.T) {
	s := openStore(t)
	run := s.NewRun()
	run.Observe(results(1)[0])

	if _, err := run.Export(); !errors.Is(err, ErrNotSealed) {
		t.Errorf("export error = %v, want ErrNotSealed", err)
	}

	if _, err := s.Export(uuid.New()); !errors.Is(err, ErrNotSealed) {
		t.Errorf("unknown run export error = %v, want ErrNotSealed", err)
	}
}

// TestArchiveChecksum checks an altered record is detected.
func TestArchiveChecksum(t *testing.T) {
	verdict := encodeVerdict(Verdict{RunID: uuid.New()})
	record := encodeRecord(Record{Index: 4, True: 5, Adversaries: []int{2}})

	raw := buildArchive(verdict, [][]byte{record})

	if _, _, err := parseArchive(raw); err != nil {
		t.Fatalf("parse intact archive: %v", err)
	}

	at := bytes.Index(raw, record)
	if at < 0 {
		t.Fatal("record not found in archive")
	}
	raw[at+len(record)-1] ^= 0xff

	if _, _, err := parseArchive(raw); err == nil {
		t.Error("altered archive accepted")
	}

	if _, err := ReadArchive([]byte("not zstd")); err == nil {
		t.Error("garbage accepted")
	}
}

// TestVerdictTamper checks a changed verdict no longer verifies.
func TestVerdictTamper(t *testing.T) {
	s := openStore(t)
	run := sealed(t, s, 2)

	v, _, _ := run.Verdict()
	v.Failures = 0

	if v.Verify() {
		t.Error("tampered verdict verified")
	}
}
