// Package record defines the ownership record carried inside a watermark and
// its durable text encoding.
//
// The embedded text is a wire format: images watermarked years ago must still
// parse, so Serialize output is byte-stable. It matches the JSON written by
// the first generation of the tool: ", " and ": " separators, fixed key
// order, ASCII-only escaping.
package record

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/cidutil"
	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/passkey"
)

// TimeLayout is the timestamp format stored in records.
const TimeLayout = "2006-01-02 15:04:05"

// Wire keys, in serialization order.
const (
	keyOwner       = "owner"
	keyBuyer       = "buyer"
	keyDatetime    = "datetime"
	keyPasskeyHash = "passkey_hash"
)

// Record is one ownership claim.
//
// PasskeyHash is the hex SHA-256 of the owner's passkey; the passkey itself
// is never stored. An empty PasskeyHash marks an unprotected record that
// anyone may overwrite.
type Record struct {
	Owner       string
	Buyer       string
	Timestamp   string
	PasskeyHash string
}

// FormatTime formats t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Protected reports whether overwriting r requires a passkey.
func (r Record) Protected() bool { return r.PasskeyHash != "" }

// Equal reports whether a and b carry the same fields.
func Equal(a, b Record) bool { return a == b }

// Serialize returns the exact text embedded for r.
func Serialize(r Record) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, kv := range pairs(r) {
		if i > 0 {
			sb.WriteString(", ")
		}
		quoteASCII(&sb, kv[0])
		sb.WriteString(": ")
		quoteASCII(&sb, kv[1])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Compact returns the separator-free JSON form of r with raw UTF-8. It is the
// form that is hashed when a record is notarized, and is never embedded.
func Compact(r Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range pairs(r) {
		if i > 0 {
			buf.WriteByte(',')
		}
		quoteUTF8(&buf, kv[0])
		buf.WriteByte(':')
		quoteUTF8(&buf, kv[1])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Digest returns the hex SHA-256 of Compact(r).
func Digest(r Record) string {
	return cidutil.SHA256Hex(Compact(r))
}

// CID returns the CIDv1 (raw + sha2-256) of Compact(r).
func CID(r Record) (cid.Cid, error) {
	return cidutil.Sum(Compact(r))
}

func pairs(r Record) [][2]string {
	out := [][2]string{
		{keyOwner, r.Owner},
		{keyBuyer, r.Buyer},
		{keyDatetime, r.Timestamp},
	}
	if r.PasskeyHash != "" {
		out = append(out, [2]string{keyPasskeyHash, r.PasskeyHash})
	}
	return out
}

type wire struct {
	Owner       *string `json:"owner"`
	Buyer       *string `json:"buyer"`
	Datetime    *string `json:"datetime"`
	PasskeyHash *string `json:"passkey_hash"`
}

// Parse decodes extracted watermark text.
//
// Permissive mode accepts any JSON object carrying string owner, buyer and
// datetime fields and an optional string-or-null passkey_hash; extra keys,
// key order and whitespace are tolerated. Strict mode also requires text to
// be byte-identical to Serialize of the parsed record.
func Parse(text string, mode compliance.Mode) (Record, error) {
	var w wire
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&w); err != nil {
		return Record{}, wrapError(KindParse, "PXM-REC-001", "watermark text is not a JSON object", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, newError(KindParse, "PXM-REC-002", "trailing data after watermark object")
	}
	if w.Owner == nil {
		return Record{}, newError(KindParse, "PXM-REC-010", "missing field: owner")
	}
	if w.Buyer == nil {
		return Record{}, newError(KindParse, "PXM-REC-011", "missing field: buyer")
	}
	if w.Datetime == nil {
		return Record{}, newError(KindParse, "PXM-REC-012", "missing field: datetime")
	}
	r := Record{Owner: *w.Owner, Buyer: *w.Buyer, Timestamp: *w.Datetime}
	if w.PasskeyHash != nil {
		r.PasskeyHash = *w.PasskeyHash
	}

	if mode == compliance.Strict && Serialize(r) != text {
		return Record{}, newError(KindCanonical, "PXM-REC-020", "non-canonical watermark text")
	}
	return r, nil
}

// Validate returns every rule r violates, in a fixed order. An empty owner is
// valid: a resale may clear it.
func Validate(r Record) []error {
	var out []error
	if _, err := time.Parse(TimeLayout, r.Timestamp); err != nil {
		out = append(out, wrapError(KindValidation, "PXM-REC-102", "datetime is not in "+TimeLayout+" format", err))
	}
	if r.PasskeyHash != "" && !passkey.WellFormed(r.PasskeyHash) {
		out = append(out, newError(KindValidation, "PXM-REC-103", "passkey_hash is not a hex SHA-256 digest"))
	}
	return out
}
