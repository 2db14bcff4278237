package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/record"
)

// Operation names why a record was notarized.
type Operation string

const (
	OpOwnership Operation = "ownership"
	OpResale    Operation = "resale"
)

const documentVersion = "1"

// Entry is one record handed to a Sink.
type Entry struct {
	Operation Operation
	Record    record.Record
	Digest    string  // record.Digest(Record)
	CID       cid.Cid // record.CID(Record)
	TokenURI  string
}

// NewEntry derives the digest, CID and token URI for r.
func NewEntry(op Operation, r record.Record) (Entry, error) {
	id, err := record.CID(r)
	if err != nil {
		return Entry{}, err
	}
	uri, err := record.TokenURI(record.NewMetadata(r))
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Operation: op,
		Record:    r,
		Digest:    record.Digest(r),
		CID:       id,
		TokenURI:  uri,
	}, nil
}

func (e Entry) document(issuedAt time.Time) Document {
	return Document{
		Meta: map[string]string{
			"Issued-At": record.FormatTime(issuedAt),
			"Version":   documentVersion,
		},
		Subject: map[string]string{
			"CID":    e.CID.String(),
			"Digest": e.Digest,
		},
		Claims: map[string]string{
			"Operation": string(e.Operation),
			"Record":    string(record.Compact(e.Record)),
			"Token-URI": e.TokenURI,
		},
	}
}

// Entry rebuilds the notarized entry and checks that SUBJECT matches the
// record in CLAIMS.
func (n *Notarization) Entry() (Entry, error) {
	if v := n.Meta["Version"]; v != documentVersion {
		return Entry{}, newError(KindParse, "PXM-LDG-010", fmt.Sprintf("unsupported version %q", v))
	}
	raw := n.Claims["Record"]
	r, err := record.Parse(raw, compliance.Permissive)
	if err != nil {
		return Entry{}, wrapError(KindSubject, "PXM-LDG-011", "CLAIMS Record is not a record", err)
	}
	if string(record.Compact(r)) != raw {
		return Entry{}, newError(KindSubject, "PXM-LDG-012", "CLAIMS Record is not in compact form")
	}
	op := Operation(n.Claims["Operation"])
	if op != OpOwnership && op != OpResale {
		return Entry{}, newError(KindSubject, "PXM-LDG-013", fmt.Sprintf("unknown operation %q", op))
	}
	e, err := NewEntry(op, r)
	if err != nil {
		return Entry{}, err
	}
	if n.Subject["Digest"] != e.Digest || n.Subject["CID"] != e.CID.String() {
		return Entry{}, newError(KindSubject, "PXM-LDG-014", "SUBJECT does not match CLAIMS Record")
	}
	if n.Claims["Token-URI"] != e.TokenURI {
		return Entry{}, newError(KindSubject, "PXM-LDG-015", "Token-URI does not match CLAIMS Record")
	}
	return e, nil
}

// Receipt is what a Sink returns for a stored entry.
type Receipt struct {
	CID    cid.Cid // notarization document; cid.Undef when nothing was stored
	Digest string
}

// Sink accepts notarization entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Notarize(ctx context.Context, e Entry) (Receipt, error)
}

type discard struct{}

func (discard) Notarize(_ context.Context, e Entry) (Receipt, error) {
	return Receipt{CID: cid.Undef, Digest: e.Digest}, nil
}

// Discard is a Sink that stores nothing.
var Discard Sink = discard{}

type unavailable struct{ err error }

func (u unavailable) Notarize(_ context.Context, e Entry) (Receipt, error) {
	return Receipt{CID: cid.Undef, Digest: e.Digest}, wrapError(KindStorage, "PXM-LDG-053", "ledger unavailable", u.err)
}

// Unavailable is a Sink whose every Notarize fails with err. It stands in for
// a ledger that could not be opened, so writes still go through.
func Unavailable(err error) Sink { return unavailable{err: err} }
