package protocol

import (
	"errors"
	"fmt"
)

// Single-byte messages exchanged between participants and the coordinator.
const (
	// RoleHonest tells a participant to run the next session honestly.
	RoleHonest byte = 0

	// RoleAdversarial tells a participant to send random bits for the next session.
	RoleAdversarial byte = 1

	// ValueFalse and ValueTrue encode estimates, tiebreakers and decided values.
	ValueFalse byte = 0
	ValueTrue  byte = 1

	// NoDecisionByte is reported by adversarial participants instead of a value.
	NoDecisionByte byte = 2

	// BarrierSignal is both the arrival and the release byte of a barrier.
	BarrierSignal byte = 210

	// Terminate ends the participant command loop.
	Terminate byte = 255
)

// ErrUnexpectedByte reports a byte that is not valid at its position in the protocol.
var ErrUnexpectedByte = errors.New("unexpected protocol byte")

// unexpected wraps ErrUnexpectedByte with the offending value and context.
func unexpected(what string, b byte) error {
	return fmt.Errorf("%s %d: %w", what, b, ErrUnexpectedByte)
}

// EncodeBool maps a bit to its wire byte.
func EncodeBool(v bool) byte {
	if v {
		return ValueTrue
	}

	return ValueFalse
}

// DecodeBool maps a wire byte to a bit. Only exactly 1 is true,
// matching how peers read estimates and tiebreakers.
func DecodeBool(b byte) bool {
	return b == ValueTrue
}

// Role is a participant's behavior for one session.
type Role uint8

const (
	// Honest participants follow the protocol.
	Honest Role = iota

	// Adversarial participants send random bits and never decide.
	Adversarial
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case Honest:
		return "honest"
	case Adversarial:
		return "adversarial"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Byte returns the role's dispatch byte.
func (r Role) Byte() byte {
	if r == Adversarial {
		return RoleAdversarial
	}

	return RoleHonest
}
