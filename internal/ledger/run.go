package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"PhaseKing/internal/session"
)

// ErrNotSealed is returned when a run has no verdict, including runs that
// were never recorded.
var ErrNotSealed = errors.New("run not sealed")

// Run records the sessions of one model-check run.
type Run struct {
	store *Store    // store is where records go
	id    uuid.UUID // id identifies the run
}

// NewRun starts a run with a fresh id.
func (s *Store) NewRun() *Run {
	return &Run{store: s, id: uuid.New()}
}

// Run returns a handle on an existing run.
func (s *Store) Run(id uuid.UUID) *Run {
	return &Run{store: s, id: id}
}

// ID returns the run id.
func (r *Run) ID() uuid.UUID {
	return r.id
}

// Observe stores a finished session.
func (r *Run) Observe(result session.Result) error {
	if err := r.store.set(sessionKey(r.id, result.Index), encodeRecord(RecordOf(result))); err != nil {
		return fmt.Errorf("store session %d: %w", result.Index, err)
	}

	return nil
}

// Records returns the run's sessions in index order.
func (r *Run) Records() ([]Record, error) {
	var records []Record

	err := r.store.iteratePrefix(sessionPrefix(r.id), func(_, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			return err
		}

		records = append(records, rec)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Seal stores the run's verdict.
func (r *Run) Seal(v Verdict) error {
	if v.RunID != r.id {
		return fmt.Errorf("verdict of run %s sealed into run %s", v.RunID, r.id)
	}

	if err := r.store.set(verdictKey(r.id), encodeVerdict(v)); err != nil {
		return fmt.Errorf("store verdict: %w", err)
	}

	return nil
}

// Verdict returns the run's verdict, or false if the run is not sealed.
func (r *Run) Verdict() (Verdict, bool, error) {
	data, err := r.store.get(verdictKey(r.id))
	if err != nil || data == nil {
		return Verdict{}, false, err
	}

	v, err := decodeVerdict(data)
	if err != nil {
		return Verdict{}, false, err
	}

	return v, true, nil
}

// Verdicts returns every sealed verdict in run id order.
func (s *Store) Verdicts() ([]Verdict, error) {
	var verdicts []Verdict

	err := s.iteratePrefix(prefixVerdict, func(key, value []byte) error {
		v, err := decodeVerdict(value)
		if err != nil {
			return err
		}

		if !bytes.Equal(key[len(prefixVerdict):], v.RunID[:]) {
			return fmt.Errorf("verdict of run %s stored under another key", v.RunID)
		}

		verdicts = append(verdicts, v)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return verdicts, nil
}

// Export packs the sealed run id into a compressed archive.
func (s *Store) Export(id uuid.UUID) ([]byte, error) {
	return s.Run(id).Export()
}
