package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestSum_MatchesSHA256Hex(t *testing.T) {
	data := []byte(`{"owner":"Alice"}`)
	id, err := Sum(data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if id.Prefix().Codec != cid.Raw {
		t.Fatalf("expected raw codec")
	}
	d, err := DigestHex(id)
	if err != nil {
		t.Fatalf("DigestHex: %v", err)
	}
	if d != SHA256Hex(data) {
		t.Fatalf("digest mismatch: %s vs %s", d, SHA256Hex(data))
	}
	if String(data) != id.String() {
		t.Fatalf("String mismatch")
	}
}

func TestParse(t *testing.T) {
	s := String([]byte("ledger entry"))
	id, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.String() != s {
		t.Fatalf("Parse round trip mismatch")
	}

	if _, err := Parse("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage")
	}

	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	other := cid.NewCidV1(cid.DagCBOR, sum)
	if _, err := Parse(other.String()); err == nil {
		t.Fatalf("expected error for non-raw codec")
	}
}
