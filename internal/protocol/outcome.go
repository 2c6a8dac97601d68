package protocol

// Outcome is what a participant reports at the end of a session:
// either a decided bit or no decision at all.
type Outcome struct {
	decided bool
	value   bool
}

// Decided returns the outcome of a participant that settled on v.
func Decided(v bool) Outcome {
	return Outcome{decided: true, value: v}
}

// NoDecision returns the outcome of a participant that did not decide.
func NoDecision() Outcome {
	return Outcome{}
}

// Value returns the decided bit and whether there was a decision.
func (o Outcome) Value() (bool, bool) {
	return o.value, o.decided
}

// Byte encodes the outcome for the coordinator: 0, 1, or the no-decision sentinel.
func (o Outcome) Byte() byte {
	if !o.decided {
		return NoDecisionByte
	}

	return EncodeBool(o.value)
}

// String returns "true", "false" or "none".
func (o Outcome) String() string {
	if !o.decided {
		return "none"
	}

	if o.value {
		return "true"
	}

	return "false"
}

// ParseOutcome decodes a reported byte.
func ParseOutcome(b byte) (Outcome, error) {
	switch b {
	case ValueFalse:
		return Decided(false), nil
	case ValueTrue:
		return Decided(true), nil
	case NoDecisionByte:
		return NoDecision(), nil
	default:
		return Outcome{}, unexpected("outcome", b)
	}
}
