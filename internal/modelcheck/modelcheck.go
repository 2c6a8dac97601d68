// Package modelcheck runs batches of sessions and turns them into a single
// statistical verdict about the protocol.
package modelcheck

import (
	"fmt"
	"math"
	"time"

	"PhaseKing/internal/logger"
	"PhaseKing/internal/session"
)

// Bound selects the sample-size formula.
type Bound string

const (
	// Legacy is ceil(log(confidence) / log(successRatio)). It shrinks as
	// confidence approaches 1 and is kept for comparability with earlier runs.
	Legacy Bound = "legacy"

	// OneSided is ceil(log(1-confidence) / log(successRatio)), the number of
	// clean trials after which a success ratio below the target is rejected
	// at the given confidence.
	OneSided Bound = "one-sided"
)

// ParseBound maps a setting value to a Bound. Empty means Legacy.
func ParseBound(s string) (Bound, error) {
	switch Bound(s) {
	case "", Legacy:
		return Legacy, nil
	case OneSided:
		return OneSided, nil
	default:
		return "", fmt.Errorf("unknown bound %q (want %q or %q)", s, Legacy, OneSided)
	}
}

// SampleSize returns the number of sessions for the given bound.
func (b Bound) SampleSize(successRatio, confidence float64) (int, error) {
	switch b {
	case "", Legacy:
		return SampleSize(successRatio, confidence)
	case OneSided:
		return OneSidedSampleSize(successRatio, confidence)
	default:
		return 0, fmt.Errorf("unknown bound %q", string(b))
	}
}

// SampleSize is ceil(log(confidence) / log(successRatio)).
func SampleSize(successRatio, confidence float64) (int, error) {
	if err := checkUnit(successRatio, confidence); err != nil {
		return 0, err
	}

	return ceilPositive(math.Log(confidence) / math.Log(successRatio)), nil
}

// OneSidedSampleSize is ceil(log(1-confidence) / log(successRatio)).
func OneSidedSampleSize(successRatio, confidence float64) (int, error) {
	if err := checkUnit(successRatio, confidence); err != nil {
		return 0, err
	}

	return ceilPositive(math.Log(1-confidence) / math.Log(successRatio)), nil
}

// checkUnit requires both inputs strictly inside (0,1).
func checkUnit(successRatio, confidence float64) error {
	if !(successRatio > 0 && successRatio < 1) {
		return fmt.Errorf("success ratio %v outside (0,1)", successRatio)
	}

	if !(confidence > 0 && confidence < 1) {
		return fmt.Errorf("confidence %v outside (0,1)", confidence)
	}

	return nil
}

// ceilPositive rounds x up, never below one session.
func ceilPositive(x float64) int {
	n := int(math.Ceil(x))
	if n < 1 {
		return 1
	}

	return n
}

// Plan is how many sessions to run and what they are meant to show.
type Plan struct {
	Sessions     int     // Sessions is the exact number of sessions to run
	SuccessRatio float64 // SuccessRatio is the target probability of reaching consensus; 0 in fixed mode
	Confidence   float64 // Confidence is the target confidence; 0 in fixed mode
	Bound        Bound   // Bound is the formula Sessions came from; empty in fixed mode
}

// NewPlan derives the session count from a target ratio and confidence.
func NewPlan(successRatio, confidence float64, bound Bound) (Plan, error) {
	n, err := bound.SampleSize(successRatio, confidence)
	if err != nil {
		return Plan{}, err
	}

	if bound == "" {
		bound = Legacy
	}

	return Plan{
		Sessions:     n,
		SuccessRatio: successRatio,
		Confidence:   confidence,
		Bound:        bound,
	}, nil
}

// FixedPlan runs exactly sessions sessions with no statistical target.
func FixedPlan(sessions int) (Plan, error) {
	if sessions < 1 {
		return Plan{}, fmt.Errorf("session count %d must be at least 1", sessions)
	}

	return Plan{Sessions: sessions}, nil
}

// Fixed reports whether the plan has no statistical target.
func (p Plan) Fixed() bool {
	return p.Bound == ""
}

// Runner plays one session.
type Runner interface {
	Run(index int) (session.Result, error)
}

// Report is the outcome of a batch.
type Report struct {
	Plan     Plan          // Plan is what was run
	Sessions int           // Sessions is how many sessions completed
	Failures int           // Failures counts sessions that did not reach consensus
	Duration time.Duration // Duration is the wall time of the batch
}

// Guaranteed reports whether every session reached consensus.
func (r Report) Guaranteed() bool {
	return r.Sessions == r.Plan.Sessions && r.Failures == 0
}

// Summary is the one-line verdict printed at the end of a run.
func (r Report) Summary() string {
	switch {
	case r.Guaranteed() && r.Plan.Fixed():
		return fmt.Sprintf("consensus reached in all %d sessions", r.Sessions)
	case r.Guaranteed():
		return fmt.Sprintf("consensus guaranteed at probability %g with confidence %g", r.Plan.SuccessRatio, r.Plan.Confidence)
	default:
		return fmt.Sprintf("consensus not reached in %d of %d sessions", r.Failures, r.Sessions)
	}
}

// Check runs exactly plan.Sessions sessions back to back. A communication
// error stops the batch; the report covers the sessions completed so far.
func Check(runner Runner, plan Plan) (Report, error) {
	report := Report{Plan: plan}
	start := time.Now()

	logger.Info("starting model check",
		"sessions", plan.Sessions,
		"ratio", plan.SuccessRatio,
		"confidence", plan.Confidence,
		"bound", string(plan.Bound),
	)

	for i := 0; i < plan.Sessions; i++ {
		result, err := runner.Run(i)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		report.Sessions++
		if result.Verdict == session.NotReached {
			report.Failures++
		}
	}

	report.Duration = time.Since(start)

	return report, nil
}
