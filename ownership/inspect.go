package ownership

import (
	"errors"

	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/lsb"
	"xdao.co/pxmark/record"
)

// State is what a pixel buffer currently carries.
type State int

const (
	// Unwatermarked: no EOF sentinel in the scanned prefix, or an empty
	// payload before it.
	Unwatermarked State = iota
	// Watermarked: a sentinel was found and the text before it parses.
	Watermarked
	// Corrupted: a sentinel was found but the text before it does not parse,
	// or in strict mode fails record validation.
	Corrupted
)

func (s State) String() string {
	switch s {
	case Unwatermarked:
		return "unwatermarked"
	case Watermarked:
		return "watermarked"
	case Corrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// Inspection is the explicit prior state handed to EmbedNew and Resell.
type Inspection struct {
	State  State
	Record record.Record // set when State == Watermarked
	Raw    string        // extracted text; empty when Unwatermarked
	Err    error         // parse failure when State == Corrupted
}

// Inspect extracts and parses the watermark in buf.
func Inspect(buf lsb.PixelBuffer, mode compliance.Mode) Inspection {
	raw, found := lsb.Extract(buf)
	if !found || raw == "" {
		return Inspection{State: Unwatermarked}
	}
	r, err := record.Parse(raw, mode)
	if err != nil {
		return Inspection{State: Corrupted, Raw: raw, Err: err}
	}
	if mode == compliance.Strict {
		if errs := record.Validate(r); len(errs) > 0 {
			return Inspection{State: Corrupted, Raw: raw, Err: errors.Join(errs...)}
		}
	}
	return Inspection{State: Watermarked, Record: r, Raw: raw}
}

// Protected reports whether a passkey is needed to overwrite the inspected
// watermark.
func (in Inspection) Protected() bool {
	r, ok := priorRecord(in)
	return ok && r.Protected()
}
