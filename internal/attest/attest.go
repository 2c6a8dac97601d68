// Package attest signs model-check verdicts with a BLS key bound to the
// coordinator's ed25519 identity, so a verdict exported from one machine can
// be checked on another.
package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// PublicKeySize is the size of a compressed BLS public key in bytes.
	PublicKeySize = 48

	// SignatureSize is the size of a compressed BLS signature in bytes.
	SignatureSize = 96
)

// dst is the domain separation tag for verdict signatures.
var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// Signer holds a BLS key pair.
type Signer struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// Derive returns the signer bound to an ed25519 identity:
// IKM = BLAKE3("phaseking-bls-keygen" || seed).
func Derive(identity ed25519.PrivateKey) (*Signer, error) {
	h := blake3.New()
	h.Write([]byte("phaseking-bls-keygen"))
	h.Write(identity.Seed())

	var ikm [32]byte
	h.Sum(ikm[:0])

	return FromSeed(ikm[:])
}

// Generate creates a signer from a random seed.
func Generate() (*Signer, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed: %w", err)
	}

	return FromSeed(ikm[:])
}

// FromSeed creates a signer from at least 32 bytes of key material.
func FromSeed(seed []byte) (*Signer, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	return &Signer{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// PublicKey returns the compressed public key.
func (s *Signer) PublicKey() []byte {
	return s.public.Compress()
}

// Statement is what a verdict signature covers.
type Statement struct {
	RunID        string   // RunID identifies the run
	NodeCount    int      // NodeCount is the fleet size
	Sessions     int      // Sessions is how many sessions ran
	Failures     int      // Failures counts sessions without consensus
	SuccessRatio float64  // SuccessRatio is the target ratio; 0 in fixed mode
	Confidence   float64  // Confidence is the target confidence; 0 in fixed mode
	Bound        string   // Bound names the sample-size formula; empty in fixed mode
	Seed         [32]byte // Seed is the run's randomness seed
}

// Digest hashes the statement's canonical encoding.
func (st Statement) Digest() [32]byte {
	h := blake3.New()
	h.Write([]byte("phaseking-verdict"))

	writeString(h, st.RunID)

	var buf [8]byte
	for _, v := range []uint64{
		uint64(st.NodeCount),
		uint64(st.Sessions),
		uint64(st.Failures),
		math.Float64bits(st.SuccessRatio),
		math.Float64bits(st.Confidence),
	} {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeString(h, st.Bound)
	h.Write(st.Seed[:])

	var out [32]byte
	h.Sum(out[:0])

	return out
}

// writeString writes a length-prefixed string.
func writeString(h *blake3.Hasher, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

// Sign signs the statement's digest.
func (s *Signer) Sign(st Statement) []byte {
	digest := st.Digest()
	return new(blst.P2Affine).Sign(s.secret, digest[:], dst).Compress()
}

// Verify checks a signature over the statement against a public key.
func Verify(st Statement, signature, publicKey []byte) bool {
	if len(signature) != SignatureSize || len(publicKey) != PublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	digest := st.Digest()

	return sig.Verify(true, pk, true, digest[:], dst)
}
