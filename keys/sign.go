package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signer signs a precomputed digest.
type Signer interface {
	Algorithm() string
	IssuerKey() string
	Sign(digest []byte) ([]byte, error)
}

// NewSigner builds a Signer for alg from a 32-byte seed.
func NewSigner(alg string, seed []byte) (Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	switch alg {
	case AlgEd25519:
		return NewEd25519Signer(seed), nil
	case AlgDilithium3:
		return NewDilithium3Signer(DeriveSeed(seed, AlgDilithium3)), nil
	default:
		return nil, fmt.Errorf("keys: unsupported algorithm %q", alg)
	}
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) *Ed25519Signer {
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}
}

func (s *Ed25519Signer) Algorithm() string { return AlgEd25519 }

func (s *Ed25519Signer) IssuerKey() string {
	return FormatIssuerKey(AlgEd25519, s.priv.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, digest), nil
}

type Dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

func NewDilithium3Signer(seed [mode3.SeedSize]byte) *Dilithium3Signer {
	pub, priv := mode3.NewKeyFromSeed(&seed)
	return &Dilithium3Signer{pub: pub, priv: priv}
}

func (s *Dilithium3Signer) Algorithm() string { return AlgDilithium3 }

func (s *Dilithium3Signer) IssuerKey() string {
	return FormatIssuerKey(AlgDilithium3, s.pub.Bytes())
}

func (s *Dilithium3Signer) Sign(digest []byte) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return sig, nil
}

// DeriveSeed derives a purpose-specific seed from a stored root seed.
func DeriveSeed(root []byte, purpose string) [32]byte {
	h := sha256.New()
	_, _ = h.Write(root)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("pxmark-ledger-key-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(purpose))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
