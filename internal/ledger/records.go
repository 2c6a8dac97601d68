package ledger

import (
	"encoding/binary"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/google/uuid"

	"PhaseKing/internal/attest"
	"PhaseKing/internal/session"
	"PhaseKing/internal/types"
)

// Key prefixes.
var (
	prefixSession = []byte("s:") // prefixSession + run id + big-endian index -> SessionRecord
	prefixVerdict = []byte("v:") // prefixVerdict + run id -> Verdict
)

// sessionKey is the key of one session record.
func sessionKey(run uuid.UUID, index int) []byte {
	key := make([]byte, 0, len(prefixSession)+16+4)
	key = append(key, prefixSession...)
	key = append(key, run[:]...)
	return binary.BigEndian.AppendUint32(key, uint32(index))
}

// sessionPrefix is the prefix of every session record of a run.
func sessionPrefix(run uuid.UUID) []byte {
	return append(append([]byte{}, prefixSession...), run[:]...)
}

// verdictKey is the key of a run's verdict.
func verdictKey(run uuid.UUID) []byte {
	return append(append([]byte{}, prefixVerdict...), run[:]...)
}

// Record is one stored session.
type Record struct {
	Index       int           // Index is the session's position in its run
	True        int           // True counts participants that decided true
	False       int           // False counts participants that decided false
	Adversaries []int         // Adversaries lists the adversarial ids
	Reached     bool          // Reached is the session verdict
	Duration    time.Duration // Duration is the session's wall time, to the microsecond
}

// RecordOf converts a session result.
func RecordOf(r session.Result) Record {
	return Record{
		Index:       r.Index,
		True:        r.Tally.True,
		False:       r.Tally.False,
		Adversaries: r.Adversaries,
		Reached:     r.Verdict == session.Reached,
		Duration:    r.Duration.Truncate(time.Microsecond),
	}
}

// encodeRecord serializes a record as a SessionRecord table.
func encodeRecord(r Record) []byte {
	builder := flatbuffers.NewBuilder(64)

	adversaries := make([]byte, len(r.Adversaries))
	for i, id := range r.Adversaries {
		adversaries[i] = byte(id)
	}
	adv := builder.CreateByteVector(adversaries)

	types.SessionRecordStart(builder)
	types.SessionRecordAddIndex(builder, uint32(r.Index))
	types.SessionRecordAddTrueCount(builder, uint16(r.True))
	types.SessionRecordAddFalseCount(builder, uint16(r.False))
	types.SessionRecordAddAdversaries(builder, adv)
	types.SessionRecordAddReached(builder, r.Reached)
	types.SessionRecordAddDurationUs(builder, uint64(r.Duration.Microseconds()))
	builder.Finish(types.SessionRecordEnd(builder))

	return builder.FinishedBytes()
}

// decodeRecord parses a SessionRecord table.
func decodeRecord(data []byte) (r Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed session record: %v", p)
		}
	}()

	fb := types.GetRootAsSessionRecord(data, 0)

	adv := fb.AdversariesBytes()
	r = Record{
		Index:       int(fb.Index()),
		True:        int(fb.TrueCount()),
		False:       int(fb.FalseCount()),
		Adversaries: make([]int, len(adv)),
		Reached:     fb.Reached(),
		Duration:    time.Duration(fb.DurationUs()) * time.Microsecond,
	}
	for i, id := range adv {
		r.Adversaries[i] = int(id)
	}

	return r, nil
}

// Verdict is the sealed result of a run.
type Verdict struct {
	RunID        uuid.UUID // RunID identifies the run
	NodeCount    int       // NodeCount is the fleet size
	Sessions     int       // Sessions is how many sessions ran
	Failures     int       // Failures counts sessions without consensus
	SuccessRatio float64   // SuccessRatio is the target ratio; 0 in fixed mode
	Confidence   float64   // Confidence is the target confidence; 0 in fixed mode
	Bound        string    // Bound names the sample-size formula; empty in fixed mode
	Seed         [32]byte  // Seed is the run's randomness seed
	Signature    []byte    // Signature is the BLS signature over Statement, if signed
	PublicKey    []byte    // PublicKey is the signer's BLS public key, if signed
}

// Statement returns what the verdict's signature covers.
func (v Verdict) Statement() attest.Statement {
	return attest.Statement{
		RunID:        v.RunID.String(),
		NodeCount:    v.NodeCount,
		Sessions:     v.Sessions,
		Failures:     v.Failures,
		SuccessRatio: v.SuccessRatio,
		Confidence:   v.Confidence,
		Bound:        v.Bound,
		Seed:         v.Seed,
	}
}

// Sign attaches a signature by s.
func (v *Verdict) Sign(s *attest.Signer) {
	v.Signature = s.Sign(v.Statement())
	v.PublicKey = s.PublicKey()
}

// Verify checks the attached signature.
func (v Verdict) Verify() bool {
	return attest.Verify(v.Statement(), v.Signature, v.PublicKey)
}

// encodeVerdict serializes a verdict as a Verdict table.
func encodeVerdict(v Verdict) []byte {
	builder := flatbuffers.NewBuilder(256)

	seed := builder.CreateByteVector(v.Seed[:])
	signature := builder.CreateByteVector(v.Signature)
	publicKey := builder.CreateByteVector(v.PublicKey)
	runID := builder.CreateString(v.RunID.String())
	bound := builder.CreateString(v.Bound)

	types.VerdictStart(builder)
	types.VerdictAddSessions(builder, uint32(v.Sessions))
	types.VerdictAddFailures(builder, uint32(v.Failures))
	types.VerdictAddSuccessRatio(builder, v.SuccessRatio)
	types.VerdictAddConfidence(builder, v.Confidence)
	types.VerdictAddNodeCount(builder, byte(v.NodeCount))
	types.VerdictAddSeed(builder, seed)
	types.VerdictAddSignature(builder, signature)
	types.VerdictAddPublicKey(builder, publicKey)
	types.VerdictAddRunId(builder, runID)
	types.VerdictAddBound(builder, bound)
	builder.Finish(types.VerdictEnd(builder))

	return builder.FinishedBytes()
}

// decodeVerdict parses a Verdict table.
func decodeVerdict(data []byte) (v Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed verdict: %v", p)
		}
	}()

	fb := types.GetRootAsVerdict(data, 0)

	runID, err := uuid.ParseBytes(fb.RunId())
	if err != nil {
		return Verdict{}, fmt.Errorf("verdict run id: %w", err)
	}

	v = Verdict{
		RunID:        runID,
		NodeCount:    int(fb.NodeCount()),
		Sessions:     int(fb.Sessions()),
		Failures:     int(fb.Failures()),
		SuccessRatio: fb.SuccessRatio(),
		Confidence:   fb.Confidence(),
		Bound:        string(fb.Bound()),
	}

	if n := copy(v.Seed[:], fb.SeedBytes()); n != len(v.Seed) {
		return Verdict{}, fmt.Errorf("verdict seed of %d bytes", n)
	}

	if sig := fb.SignatureBytes(); len(sig) > 0 {
		v.Signature = append([]byte(nil), sig...)
	}
	if pk := fb.PublicKeyBytes(); len(pk) > 0 {
		v.PublicKey = append([]byte(nil), pk...)
	}

	return v, nil
}
