package modelcheck

import (
	"errors"
	"strings"
	"testing"

	"PhaseKing/internal/session"
)

// countingRunner returns scripted verdicts and counts calls.
type countingRunner struct {
	calls   int
	fail    map[int]bool
	errorAt int
}

func (r *countingRunner) Run(index int) (session.Result, error) {
	if index != r.calls {
		return session.Result{}, errors.New("sessions out of order")
	}
	r.calls++

	if r.errorAt > 0 && r.calls == r.errorAt {
		return session.Result{}, errors.New("channel lost")
	}

	if r.fail[index] {
		return session.Result{Index: index, Verdict: session.NotReached}, nil
	}

	return session.Result{Index: index, Verdict: session.Reached}, nil
}

// TestSampleSizeNinetyNineNinetyFive checks the exact count for ratio 0.99, confidence 0.95.
func TestSampleSizeNinetyNineNinetyFive(t *testing.T) {
	n, err := SampleSize(0.99, 0.95)
	if err != nil {
		t.Fatalf("sample size: %v", err)
	}
	if n != 6 {
		t.Errorf("SampleSize(0.99, 0.95) = %d, want 6", n)
	}

	n, err = OneSidedSampleSize(0.99, 0.95)
	if err != nil {
		t.Fatalf("one-sided sample size: %v", err)
	}
	if n != 299 {
		t.Errorf("OneSidedSampleSize(0.99, 0.95) = %d, want 299", n)
	}
}

// TestSampleSizeRange checks both inputs must lie strictly inside (0,1).
func TestSampleSizeRange(t *testing.T) {
	for _, in := range [][2]float64{{0, 0.5}, {1, 0.5}, {0.5, 0}, {0.5, 1}, {-1, 0.5}, {0.5, 2}} {
		if _, err := SampleSize(in[0], in[1]); err == nil {
			t.Errorf("SampleSize(%v, %v) accepted", in[0], in[1])
		}
		if _, err := OneSidedSampleSize(in[0], in[1]); err == nil {
			t.Errorf("OneSidedSampleSize(%v, %v) accepted", in[0], in[1])
		}
	}
}

// TestSampleSizeMonotonic checks both bounds grow as the success ratio
// approaches 1, and the one-sided bound grows with confidence. The legacy
// bound shrinks with confidence.
func TestSampleSizeMonotonic(t *testing.T) {
	ratios := []float64{0.5, 0.8, 0.9, 0.95, 0.99, 0.999}
	confidences := []float64{0.5, 0.8, 0.9, 0.95, 0.99, 0.999}

	for _, bound := range []Bound{Legacy, OneSided} {
		for _, c := range confidences {
			prev := 0
			for _, r := range ratios {
				n, err := bound.SampleSize(r, c)
				if err != nil {
					t.Fatalf("%s(%v, %v): %v", bound, r, c, err)
				}
				if n < prev {
					t.Errorf("%s: ratio %v confidence %v gives %d, below %d", bound, r, c, n, prev)
				}
				prev = n
			}
		}
	}

	for _, r := range ratios {
		prevOne, prevLegacy := 0, int(^uint(0)>>1)
		for _, c := range confidences {
			one, _ := OneSidedSampleSize(r, c)
			legacy, _ := SampleSize(r, c)

			if one < prevOne {
				t.Errorf("one-sided: ratio %v confidence %v gives %d, below %d", r, c, one, prevOne)
			}
			if legacy > prevLegacy {
				t.Errorf("legacy: ratio %v confidence %v gives %d, above %d", r, c, legacy, prevLegacy)
			}
			prevOne, prevLegacy = one, legacy
		}
	}
}

// TestCheckRunsExactly checks the driver runs the planned count, no more.
func TestCheckRunsExactly(t *testing.T) {
	plan, err := NewPlan(0.99, 0.95, "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if plan.Bound != Legacy {
		t.Errorf("default bound = %q, want %q", plan.Bound, Legacy)
	}

	runner := &countingRunner{}
	report, err := Check(runner, plan)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if runner.calls != 6 || report.Sessions != 6 {
		t.Errorf("ran %d sessions (report %d), want 6", runner.calls, report.Sessions)
	}

	if !report.Guaranteed() {
		t.Errorf("report not guaranteed: %+v", report)
	}

	if !strings.Contains(report.Summary(), "probability 0.99 with confidence 0.95") {
		t.Errorf("summary = %q", report.Summary())
	}
}

// TestCheckCountsFailures checks NotReached sessions are counted.
func TestCheckCountsFailures(t *testing.T) {
	plan, err := FixedPlan(10)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	report, err := Check(&countingRunner{fail: map[int]bool{2: true, 7: true}}, plan)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if report.Failures != 2 || report.Guaranteed() {
		t.Errorf("report %+v", report)
	}

	if report.Summary() != "consensus not reached in 2 of 10 sessions" {
		t.Errorf("summary = %q", report.Summary())
	}
}

// TestCheckStopsOnError checks a session error ends the batch.
func TestCheckStopsOnError(t *testing.T) {
	plan, _ := FixedPlan(5)
	runner := &countingRunner{errorAt: 3}

	report, err := Check(runner, plan)
	if err == nil {
		t.Fatal("expected error")
	}

	if runner.calls != 3 || report.Sessions != 2 || report.Guaranteed() {
		t.Errorf("calls %d report %+v", runner.calls, report)
	}
}

// TestParseBound checks the setting values.
func TestParseBound(t *testing.T) {
	for in, want := range map[string]Bound{"": Legacy, "legacy": Legacy, "one-sided": OneSided} {
		got, err := ParseBound(in)
		if err != nil || got != want {
			t.Errorf("ParseBound(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}

	if _, err := ParseBound("two-sided"); err == nil {
		t.Error("unknown bound accepted")
	}

	if _, err := FixedPlan(0); err == nil {
		t.Error("zero sessions accepted")
	}
}
