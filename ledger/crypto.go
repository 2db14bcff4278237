package ledger

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/sha3"

	"xdao.co/pxmark/keys"
)

// Hash algorithms accepted in Hash-Alg.
const (
	HashSHA256  = "sha256"
	HashSHA512  = "sha512"
	HashSHA3256 = "sha3-256"
)

// SignatureNone marks an unsigned notarization.
const SignatureNone = "none"

// CheckHashAlg reports whether alg can be used for Hash-Alg.
func CheckHashAlg(alg string) error {
	switch alg {
	case HashSHA256, HashSHA512, HashSHA3256:
		return nil
	default:
		return newError(KindCrypto, "PXM-LDG-040", fmt.Sprintf("unsupported hash algorithm %q", alg))
	}
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, CheckHashAlg(hashAlg)
	}
}

// Seal renders doc with a CRYPTO section produced by signer. A nil signer
// yields an unsigned document.
func Seal(doc Document, signer keys.Signer, hashAlg string) ([]byte, error) {
	if err := CheckHashAlg(hashAlg); err != nil {
		return nil, err
	}
	doc.Crypto = map[string]string{
		"Hash-Alg":      hashAlg,
		"Signature-Alg": SignatureNone,
	}
	if signer == nil {
		return Render(doc)
	}

	// The CRYPTO section does not affect the signed prefix, so render once
	// without it to learn what to sign.
	doc.Crypto["Signature-Alg"] = signer.Algorithm()
	doc.Crypto["Issuer-Key"] = signer.IssuerKey()
	unsigned, err := Render(doc)
	if err != nil {
		return nil, err
	}
	signed, err := SignedBytes(unsigned)
	if err != nil {
		return nil, err
	}
	digest, err := digestFor(hashAlg, signed)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, wrapError(KindCrypto, "PXM-LDG-041", "signing failed", err)
	}
	doc.Crypto["Signature"] = base64.StdEncoding.EncodeToString(sig)
	return Render(doc)
}

// IsSigned reports whether n carries a signature.
func (n *Notarization) IsSigned() bool {
	return n.Crypto["Signature-Alg"] != SignatureNone
}

// Verify checks the CRYPTO section. Unsigned documents verify trivially.
func (n *Notarization) Verify() error {
	hashAlg := n.Crypto["Hash-Alg"]
	if err := CheckHashAlg(hashAlg); err != nil {
		return err
	}
	if !n.IsSigned() {
		if len(n.Crypto) != 2 {
			return newError(KindCrypto, "PXM-LDG-042", "unsigned document carries signature fields")
		}
		return nil
	}

	issuer := n.Crypto["Issuer-Key"]
	alg, _, err := keys.ParseIssuerKey(issuer)
	if err != nil {
		return wrapError(KindCrypto, "PXM-LDG-043", "invalid Issuer-Key", err)
	}
	if alg != n.Crypto["Signature-Alg"] {
		return newError(KindCrypto, "PXM-LDG-044", "Signature-Alg does not match Issuer-Key")
	}
	sig, err := base64.StdEncoding.DecodeString(n.Crypto["Signature"])
	if err != nil {
		return wrapError(KindCrypto, "PXM-LDG-045", "invalid Signature encoding", err)
	}
	digest, err := digestFor(hashAlg, n.Signed)
	if err != nil {
		return err
	}
	if err := keys.Verify(issuer, digest, sig); err != nil {
		return wrapError(KindCrypto, "PXM-LDG-046", "signature does not verify", err)
	}
	return nil
}
