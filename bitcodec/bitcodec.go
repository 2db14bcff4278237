// Package bitcodec converts text to and from a sequence of binary digits,
// eight digits per byte, most significant bit first.
package bitcodec

// Bits is a sequence of binary digits. Every element is 0 or 1.
type Bits []byte

// TextToBits returns the 8-bit binary form of every byte of s, in order.
//
// The codec works on bytes, so any string round-trips through BitsToText
// unchanged, including multi-byte UTF-8.
func TextToBits(s string) Bits {
	out := make(Bits, 0, len(s)*8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		for shift := 7; shift >= 0; shift-- {
			out = append(out, (c>>uint(shift))&1)
		}
	}
	return out
}

// BitsToText groups b into 8-bit values from left to right and returns the
// resulting bytes as a string.
//
// A trailing group shorter than 8 bits is dropped without error. BitsToText
// is only an inverse of TextToBits for sequences that TextToBits produced.
func BitsToText(b Bits) string {
	n := len(b) / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var c byte
		for _, bit := range b[i*8 : i*8+8] {
			c = c<<1 | bit&1
		}
		out[i] = c
	}
	return string(out)
}
