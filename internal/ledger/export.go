package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"PhaseKing/internal/types"
)

// archiveVersion is the current archive format version.
const archiveVersion = 1

// Export packs a sealed run into a compressed archive.
func (r *Run) Export() ([]byte, error) {
	v, ok, err := r.Verdict()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run %s: %w", r.id, ErrNotSealed)
	}

	records, err := r.Records()
	if err != nil {
		return nil, err
	}

	verdict := encodeVerdict(v)
	blobs := make([][]byte, len(records))
	for i, rec := range records {
		blobs[i] = encodeRecord(rec)
	}

	return compress(buildArchive(verdict, blobs))
}

// Archive is the decoded content of an exported run.
type Archive struct {
	Verdict Verdict  // Verdict is the sealed verdict
	Records []Record // Records are the sessions in index order
}

// ReadArchive decompresses and checks an archive.
func ReadArchive(data []byte) (*Archive, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	verdict, blobs, err := parseArchive(raw)
	if err != nil {
		return nil, err
	}

	v, err := decodeVerdict(verdict)
	if err != nil {
		return nil, err
	}

	a := &Archive{Verdict: v, Records: make([]Record, len(blobs))}
	for i, b := range blobs {
		if a.Records[i], err = decodeRecord(b); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Import writes an archive's run into the store and returns its id.
func (s *Store) Import(data []byte) (uuid.UUID, error) {
	a, err := ReadArchive(data)
	if err != nil {
		return uuid.Nil, err
	}

	id := a.Verdict.RunID
	pairs := make([]keyValue, 0, len(a.Records)+1)

	for _, rec := range a.Records {
		pairs = append(pairs, keyValue{key: sessionKey(id, rec.Index), value: encodeRecord(rec)})
	}
	pairs = append(pairs, keyValue{key: verdictKey(id), value: encodeVerdict(a.Verdict)})

	if err := s.setBatch(pairs); err != nil {
		return uuid.Nil, fmt.Errorf("store run %s: %w", id, err)
	}

	return id, nil
}

// buildArchive wraps the encoded verdict and records with a checksum.
func buildArchive(verdict []byte, records [][]byte) []byte {
	checksum := computeChecksum(archiveVersion, verdict, records)

	builder := flatbuffers.NewBuilder(len(verdict) + 64*len(records) + 128)

	offsets := make([]flatbuffers.UOffsetT, len(records))
	for i, rec := range records {
		data := builder.CreateByteVector(rec)

		types.BlobStart(builder)
		types.BlobAddData(builder, data)
		offsets[i] = types.BlobEnd(builder)
	}

	types.ArchiveStartRecordsVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	recordsVector := builder.EndVector(len(offsets))

	verdictOffset := builder.CreateByteVector(verdict)
	checksumOffset := builder.CreateByteVector(checksum[:])

	types.ArchiveStart(builder)
	types.ArchiveAddVersion(builder, archiveVersion)
	types.ArchiveAddVerdict(builder, verdictOffset)
	types.ArchiveAddRecords(builder, recordsVector)
	types.ArchiveAddChecksum(builder, checksumOffset)
	builder.Finish(types.ArchiveEnd(builder))

	return builder.FinishedBytes()
}

// parseArchive extracts the verdict and records, verifying the checksum.
func parseArchive(data []byte) (verdict []byte, records [][]byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed archive: %v", p)
		}
	}()

	if len(data) < 8 {
		return nil, nil, fmt.Errorf("archive too short: %d bytes", len(data))
	}

	a := types.GetRootAsArchive(data, 0)

	if a.Version() != archiveVersion {
		return nil, nil, fmt.Errorf("archive version %d, want %d", a.Version(), archiveVersion)
	}

	verdict = a.VerdictBytes()
	records = make([][]byte, a.RecordsLength())

	var blob types.Blob
	for i := range records {
		a.Records(&blob, i)
		records[i] = blob.DataBytes()
	}

	stored := a.ChecksumBytes()
	if len(stored) != 32 {
		return nil, nil, fmt.Errorf("invalid checksum length: %d", len(stored))
	}

	computed := computeChecksum(a.Version(), verdict, records)
	if !bytes.Equal(stored, computed[:]) {
		return nil, nil, fmt.Errorf("checksum mismatch")
	}

	return verdict, records, nil
}

// computeChecksum hashes the canonical archive content:
// BLAKE3(version || len(verdict) || verdict || for each record: len || record).
func computeChecksum(version uint32, verdict []byte, records [][]byte) [32]byte {
	h := blake3.New()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], version)
	h.Write(buf[:])

	for _, part := range append([][]byte{verdict}, records...) {
		binary.BigEndian.PutUint32(buf[:], uint32(len(part)))
		h.Write(buf[:])
		h.Write(part)
	}

	var checksum [32]byte
	h.Sum(checksum[:0])

	return checksum
}

// compress applies zstd.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress reverses compress.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
