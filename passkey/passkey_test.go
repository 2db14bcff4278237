package passkey

import "testing"

func TestHash_KnownVector(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Hash("abc"); got != want {
		t.Fatalf("Hash(abc) = %s", got)
	}
}

func TestHash_DeterministicAndDistinct(t *testing.T) {
	inputs := []string{"", "pk123", "pk124", "secret1", "secret2", "Secret1", " secret1"}
	seen := map[string]string{}
	for _, in := range inputs {
		h := Hash(in)
		if h != Hash(in) {
			t.Fatalf("Hash(%q) is not deterministic", in)
		}
		if len(h) != DigestLen || !WellFormed(h) {
			t.Fatalf("Hash(%q) = %q is malformed", in, h)
		}
		if prev, ok := seen[h]; ok {
			t.Fatalf("collision between %q and %q", prev, in)
		}
		seen[h] = in
	}
}

func TestVerify(t *testing.T) {
	stored := Hash("secret1")
	if !Verify("secret1", stored) {
		t.Fatalf("expected secret1 to verify")
	}
	if Verify("secret2", stored) {
		t.Fatalf("secret2 must not verify")
	}
	if Verify("", "") {
		t.Fatalf("empty digest must not verify")
	}
	if Verify("secret1", "BA7816BF") {
		t.Fatalf("malformed digest must not verify")
	}
}

func TestMatches(t *testing.T) {
	if !Matches("a", "a") || Matches("a", "b") || Matches("a", "") {
		t.Fatalf("unexpected Matches results")
	}
}
