package record

import (
	"fmt"
	"io"
	"unicode/utf16"
)

type byteRuneWriter interface {
	io.Writer
	io.ByteWriter
	WriteString(string) (int, error)
	WriteRune(rune) (int, error)
}

// quoteASCII writes s as a JSON string containing only printable ASCII.
// Runes outside 0x20-0x7E become lowercase \uXXXX escapes, using UTF-16
// surrogate pairs above the BMP.
func quoteASCII(w byteRuneWriter, s string) {
	_ = w.WriteByte('"')
	for _, r := range s {
		if writeShortEscape(w, r) {
			continue
		}
		switch {
		case r >= 0x20 && r <= 0x7e:
			_ = w.WriteByte(byte(r))
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(w, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(w, `\u%04x`, r)
		}
	}
	_ = w.WriteByte('"')
}

// quoteUTF8 writes s as a JSON string, escaping only quotes, backslashes
// and control characters.
func quoteUTF8(w byteRuneWriter, s string) {
	_ = w.WriteByte('"')
	for _, r := range s {
		if writeShortEscape(w, r) {
			continue
		}
		if r < 0x20 {
			fmt.Fprintf(w, `\u%04x`, r)
			continue
		}
		_, _ = w.WriteRune(r)
	}
	_ = w.WriteByte('"')
}

func writeShortEscape(w byteRuneWriter, r rune) bool {
	var esc string
	switch r {
	case '"':
		esc = `\"`
	case '\\':
		esc = `\\`
	case '\n':
		esc = `\n`
	case '\r':
		esc = `\r`
	case '\t':
		esc = `\t`
	case '\b':
		esc = `\b`
	case '\f':
		esc = `\f`
	default:
		return false
	}
	_, _ = w.WriteString(esc)
	return true
}
