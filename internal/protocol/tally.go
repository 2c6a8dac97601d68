package protocol

// Tally counts true and false values.
type Tally struct {
	True  int
	False int
}

// Add counts one bit.
func (t *Tally) Add(v bool) {
	if v {
		t.True++
		return
	}

	t.False++
}

// AddOutcome counts a decided outcome; outcomes without a decision are skipped.
func (t *Tally) AddOutcome(o Outcome) {
	if v, ok := o.Value(); ok {
		t.Add(v)
	}
}

// Majority returns the strict majority bit and how many values carry it.
// A tie yields false.
func (t Tally) Majority() (bool, int) {
	if t.True > t.False {
		return true, t.True
	}

	return false, t.False
}

// Unanimous reports whether at least one value was counted and all agree.
func (t Tally) Unanimous() bool {
	return (t.True > 0 && t.False == 0) || (t.True == 0 && t.False > 0)
}
