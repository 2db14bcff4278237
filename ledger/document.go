// Package ledger notarizes ownership records.
//
// A notarization is a small canonical text document:
//
//	-----BEGIN PXMARK NOTARIZATION-----
//	META
//	Issued-At: 2024-01-01 00:00:00
//	Version: 1
//
//	SUBJECT
//	CID: bafkrei...
//	Digest: 3f1c...
//
//	CLAIMS
//	Operation: ownership
//	Record: {"owner":"Alice","buyer":"","datetime":"2024-01-01 00:00:00"}
//	Token-URI: data:application/json;base64,...
//
//	CRYPTO
//	Hash-Alg: sha256
//	Issuer-Key: ed25519:...
//	Signature: ...
//	Signature-Alg: ed25519
//	-----END PXMARK NOTARIZATION-----
//
// Sections appear in that order with keys sorted inside each, one blank line
// between sections and no trailing newline. Parse rejects any other layout,
// so a document's bytes (and therefore its CID) are fixed by its content.
// The signature covers everything before the CRYPTO header.
package ledger

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// SectionOrder defines the canonical order of sections.
var SectionOrder = []string{"META", "SUBJECT", "CLAIMS", "CRYPTO"}

const (
	Preamble  = "-----BEGIN PXMARK NOTARIZATION-----"
	Postamble = "-----END PXMARK NOTARIZATION-----"
)

// Document is the in-memory form used to render a notarization.
type Document struct {
	Meta    map[string]string
	Subject map[string]string
	Claims  map[string]string
	Crypto  map[string]string
}

func (d Document) section(name string) map[string]string {
	switch name {
	case "META":
		return d.Meta
	case "SUBJECT":
		return d.Subject
	case "CLAIMS":
		return d.Claims
	case "CRYPTO":
		return d.Crypto
	}
	return nil
}

// Render produces canonical bytes for doc.
func Render(doc Document) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	for i, name := range SectionOrder {
		pairs := doc.section(name)
		sb.WriteString(name)
		sb.WriteString("\n")

		keys := make([]string, 0, len(pairs))
		for k := range pairs {
			if err := checkKey(k); err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := pairs[k]
			if err := checkValue(v); err != nil {
				return nil, err
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}

		if i != len(SectionOrder)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(Postamble)
	return []byte(sb.String()), nil
}

func checkKey(k string) error {
	if k == "" {
		return newError(KindCanonical, "PXM-LDG-030", "empty key")
	}
	for i := 0; i < len(k); i++ {
		if k[i] <= ' ' || k[i] > '~' || k[i] == ':' {
			return newError(KindCanonical, "PXM-LDG-031", "key must be printable ASCII without spaces or colons")
		}
	}
	return nil
}

func checkValue(v string) error {
	switch {
	case v == "":
		return newError(KindCanonical, "PXM-LDG-032", "empty value")
	case strings.HasPrefix(v, " "):
		return newError(KindCanonical, "PXM-LDG-033", "value must not start with a space")
	case strings.ContainsAny(v, "\r\n"):
		return newError(KindCanonical, "PXM-LDG-034", "value must not contain newlines")
	case strings.HasSuffix(v, " ") || strings.HasSuffix(v, "\t"):
		return newError(KindCanonical, "PXM-LDG-035", "trailing whitespace forbidden")
	}
	return nil
}

// Notarization is a parsed, canonical document.
type Notarization struct {
	Document
	Raw    []byte // canonical bytes
	Signed []byte // bytes covered by the signature
}

// Parse parses a notarization and rejects anything Render would not have
// produced byte for byte.
func Parse(data []byte) (*Notarization, error) {
	if !utf8.Valid(data) {
		return nil, newError(KindParse, "PXM-LDG-001", "document must be valid UTF-8")
	}
	if !bytes.HasPrefix(data, []byte(Preamble+"\n")) {
		return nil, newError(KindParse, "PXM-LDG-002", "missing preamble")
	}
	if !bytes.HasSuffix(data, []byte("\n"+Postamble)) {
		return nil, newError(KindParse, "PXM-LDG-003", "missing postamble")
	}

	body := string(data[len(Preamble)+1 : len(data)-len(Postamble)-1])
	blocks := strings.Split(body, "\n\n")
	if len(blocks) != len(SectionOrder) {
		return nil, newError(KindParse, "PXM-LDG-004", "sections missing or out of order")
	}

	sections := make(map[string]map[string]string, len(SectionOrder))
	for i, block := range blocks {
		lines := strings.Split(block, "\n")
		if lines[0] != SectionOrder[i] {
			return nil, newError(KindParse, "PXM-LDG-004", "sections missing or out of order")
		}
		pairs := make(map[string]string, len(lines)-1)
		for _, line := range lines[1:] {
			k, v, ok := strings.Cut(line, ": ")
			if !ok {
				return nil, newError(KindParse, "PXM-LDG-005", "invalid key-value formatting")
			}
			if _, dup := pairs[k]; dup {
				return nil, newError(KindParse, "PXM-LDG-006", "duplicate key in section "+SectionOrder[i])
			}
			pairs[k] = v
		}
		sections[SectionOrder[i]] = pairs
	}

	doc := Document{
		Meta:    sections["META"],
		Subject: sections["SUBJECT"],
		Claims:  sections["CLAIMS"],
		Crypto:  sections["CRYPTO"],
	}
	canonical, err := Render(doc)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data, canonical) {
		return nil, newError(KindCanonical, "PXM-LDG-020", "non-canonical notarization")
	}

	signed, err := SignedBytes(canonical)
	if err != nil {
		return nil, err
	}
	return &Notarization{Document: doc, Raw: canonical, Signed: signed}, nil
}

// SignedBytes returns the prefix of canonical covered by the signature:
// preamble through the blank line that ends CLAIMS.
func SignedBytes(canonical []byte) ([]byte, error) {
	idx := bytes.Index(canonical, []byte("\n\nCRYPTO\n"))
	if idx < 0 {
		return nil, errors.New("ledger: cannot determine signature scope")
	}
	return canonical[:idx+2], nil
}
