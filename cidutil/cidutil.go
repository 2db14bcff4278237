// Package cidutil derives the content identifiers used for notarized
// ownership records and ledger documents.
package cidutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns a CIDv1 using the "raw" multicodec and a sha2-256 multihash.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String returns Sum(data) in its default string form, or "" if hashing fails.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this is unreachable.
		return ""
	}
	return id.String()
}

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	s := sha256.Sum256(data)
	return hex.EncodeToString(s[:])
}

// Parse decodes s and rejects anything that is not a CIDv1 raw + sha2-256.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	pre := id.Prefix()
	if pre.Version != 1 || pre.Codec != cid.Raw || pre.MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cidutil: %s is not a CIDv1 raw sha2-256", s)
	}
	return id, nil
}

// DigestHex returns the hex sha2-256 digest carried inside id.
func DigestHex(id cid.Cid) (string, error) {
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return "", err
	}
	if dec.Code != multihash.SHA2_256 {
		return "", fmt.Errorf("cidutil: unexpected multihash code 0x%x", dec.Code)
	}
	return hex.EncodeToString(dec.Digest), nil
}
