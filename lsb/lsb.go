// Package lsb embeds and extracts text payloads in the least significant bit
// of the samples of a flattened pixel buffer.
//
// One payload bit occupies exactly one sample. A payload always starts at
// sample 0 and is terminated by EOF, so embedding over an existing watermark
// replaces it. When the new payload is shorter, the old bits after the new
// EOF stay in the buffer but are never read.
//
// Known limitation: EOF is only argued to be absent from byte-aligned ASCII
// payloads (every ASCII byte has a zero high bit, so fifteen consecutive ones
// cannot occur). Payloads containing the sentinel pattern are not escaped.
package lsb

import (
	"bytes"

	"xdao.co/pxmark/bitcodec"
)

// EOF is the sentinel appended after every payload.
var EOF = bitcodec.Bits{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0}

// ScanLimit bounds how many samples Extract reads. A payload whose sentinel
// ends beyond this prefix is reported as not found.
const ScanLimit = 4096 * 8 * 3

// PixelBuffer is an ordered sequence of 8-bit samples, one per color channel
// per pixel.
type PixelBuffer []uint8

// Clone returns a copy of p that shares no memory with it.
func (p PixelBuffer) Clone() PixelBuffer {
	if p == nil {
		return nil
	}
	out := make(PixelBuffer, len(p))
	copy(out, p)
	return out
}

// Capacity returns the number of payload bits buf can hold after reserving
// room for EOF.
func Capacity(buf PixelBuffer) int {
	n := len(buf) - len(EOF)
	if n < 0 {
		return 0
	}
	return n
}

// Frame returns the exact bit sequence Embed writes for payload.
func Frame(payload string) bitcodec.Bits {
	bits := bitcodec.TextToBits(payload)
	return append(bits, EOF...)
}

// Embed writes payload followed by EOF into the low bits of a copy of buf.
//
// buf is never modified. When the framed payload needs more samples than buf
// has, Embed returns a *CapacityError and no buffer.
func Embed(buf PixelBuffer, payload string) (PixelBuffer, error) {
	bits := Frame(payload)
	if len(bits) > len(buf) {
		return nil, &CapacityError{Need: len(bits), Have: len(buf)}
	}
	out := buf.Clone()
	for i, bit := range bits {
		out[i] = out[i]&^1 | bit
	}
	return out, nil
}

// LSBs returns the low bit of the first n samples of buf (or all of them when
// buf is shorter).
func LSBs(buf PixelBuffer, n int) bitcodec.Bits {
	if n > len(buf) || n < 0 {
		n = len(buf)
	}
	out := make(bitcodec.Bits, n)
	for i := 0; i < n; i++ {
		out[i] = buf[i] & 1
	}
	return out
}

// Extract reads the payload in front of the first EOF found within the first
// ScanLimit samples, at any bit offset.
//
// found is false when no sentinel is present; that is a normal outcome, not
// an error. A found payload may still be garbage; callers decide whether it
// parses.
func Extract(buf PixelBuffer) (payload string, found bool) {
	bits := LSBs(buf, ScanLimit)
	end := bytes.Index(bits, EOF)
	if end < 0 {
		return "", false
	}
	return bitcodec.BitsToText(bits[:end]), true
}
