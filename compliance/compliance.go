// Package compliance selects how strictly extracted watermark text is read.
package compliance

import "fmt"

// Mode selects how aggressively ambiguity is rejected.
//
// Strict prefers explicit failure: extracted text must be byte-identical to
// the canonical serialization of the record it decodes to. Permissive reads
// any well-formed record so that payloads written by other tools are still
// recognized.
type Mode int

const (
	Permissive Mode = iota
	Strict
)

func (m Mode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Parse maps "permissive" or "strict" to a Mode. The empty string is
// Permissive.
func Parse(s string) (Mode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("compliance: unknown mode %q", s)
	}
}
