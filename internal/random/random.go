// Package random provides the seeded random sources used for initial estimates,
// adversarial bits and role assignment.
//
// Every source is a ChaCha8 stream whose key is derived from a master seed and a
// label with blake3, so a run can be replayed by reusing its seed while the
// streams of different participants stay independent.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand/v2"

	"github.com/zeebo/blake3"
)

// SeedSize is the size of a master seed in bytes.
const SeedSize = 32

// Seed is the master seed of a run.
type Seed [SeedSize]byte

// NewSeed draws a fresh master seed from the operating system.
func NewSeed() (Seed, error) {
	var s Seed
	if _, err := rand.Read(s[:]); err != nil {
		return Seed{}, fmt.Errorf("read entropy:\n%w", err)
	}

	return s, nil
}

// ParseSeed decodes a hex seed. An empty string yields a fresh seed.
func ParseSeed(text string) (Seed, error) {
	if text == "" {
		return NewSeed()
	}

	raw, err := hex.DecodeString(text)
	if err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}

	if len(raw) != SeedSize {
		return Seed{}, fmt.Errorf("invalid seed size: got %d, want %d", len(raw), SeedSize)
	}

	var s Seed
	copy(s[:], raw)

	return s, nil
}

// String returns the hex form accepted by ParseSeed.
func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// Derive returns the key of the stream named label.
// Key = BLAKE3("phaseking-rng" || label || seed)
func (s Seed) Derive(label string) [32]byte {
	h := blake3.New()
	h.Write([]byte("phaseking-rng"))
	h.Write([]byte(label))
	h.Write(s[:])

	var out [32]byte
	h.Sum(out[:0])

	return out
}

// Source returns the stream named label. The result is not safe for
// concurrent use; each goroutine owns its own source.
func (s Seed) Source(label string) *mrand.Rand {
	return mrand.New(mrand.NewChaCha8(s.Derive(label)))
}

// ParticipantLabel names the stream of participant id.
func ParticipantLabel(id int) string {
	return fmt.Sprintf("participant/%d", id)
}

// CoordinatorLabel names the coordinator's role-assignment stream.
const CoordinatorLabel = "coordinator"

// Bit draws one uniform bit.
func Bit(r *mrand.Rand) bool {
	return r.IntN(2) == 1
}
