package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signature algorithm names as they appear in issuer keys and ledger documents.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// FormatIssuerKey encodes a public key as "<alg>:<base64>".
func FormatIssuerKey(alg string, pub []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(pub)
}

// ParseIssuerKey splits an issuer key and checks the public key length for
// its algorithm.
func ParseIssuerKey(s string) (alg string, pub []byte, err error) {
	alg, b64, ok := strings.Cut(s, ":")
	if !ok {
		return "", nil, fmt.Errorf("keys: issuer key %q has no algorithm prefix", s)
	}
	pub, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("keys: issuer key: %w", err)
	}
	var want int
	switch alg {
	case AlgEd25519:
		want = ed25519.PublicKeySize
	case AlgDilithium3:
		want = mode3.PublicKeySize
	default:
		return "", nil, fmt.Errorf("keys: unsupported algorithm %q", alg)
	}
	if len(pub) != want {
		return "", nil, fmt.Errorf("keys: %s public key must be %d bytes, got %d", alg, want, len(pub))
	}
	return alg, pub, nil
}

// Verify checks sig over digest against an issuer key.
func Verify(issuerKey string, digest, sig []byte) error {
	alg, pub, err := ParseIssuerKey(issuerKey)
	if err != nil {
		return err
	}
	var ok bool
	switch alg {
	case AlgEd25519:
		ok = ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("keys: dilithium3 public key: %w", err)
		}
		ok = mode3.Verify(&pk, digest, sig)
	}
	if !ok {
		return fmt.Errorf("keys: %s signature does not verify", alg)
	}
	return nil
}
