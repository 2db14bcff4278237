package ledger

import (
	"context"
	"time"

	"github.com/decred/slog"
	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/keys"
	"xdao.co/pxmark/storage"
)

// CASLedger stores notarization documents in a content-addressed store.
// The receipt CID is the CID of the stored document.
type CASLedger struct {
	cas     storage.CAS
	signer  keys.Signer
	hashAlg string
	log     slog.Logger
	now     func() time.Time
}

var _ Sink = (*CASLedger)(nil)

type Option func(*CASLedger)

// WithSigner signs every document with s. Without it documents are unsigned.
func WithSigner(s keys.Signer) Option { return func(l *CASLedger) { l.signer = s } }

// WithHashAlg sets Hash-Alg; the default is sha256.
func WithHashAlg(alg string) Option { return func(l *CASLedger) { l.hashAlg = alg } }

func WithLogger(log slog.Logger) Option { return func(l *CASLedger) { l.log = log } }

func WithClock(now func() time.Time) Option { return func(l *CASLedger) { l.now = now } }

func NewCASLedger(cas storage.CAS, opts ...Option) (*CASLedger, error) {
	l := &CASLedger{
		cas:     cas,
		hashAlg: HashSHA256,
		log:     slog.Disabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cas == nil {
		return nil, newError(KindStorage, "PXM-LDG-050", "missing CAS")
	}
	if err := CheckHashAlg(l.hashAlg); err != nil {
		return nil, err
	}
	return l, nil
}

// Store returns the underlying content-addressed store.
func (l *CASLedger) Store() storage.CAS { return l.cas }

func (l *CASLedger) Notarize(ctx context.Context, e Entry) (Receipt, error) {
	data, err := Seal(e.document(l.now()), l.signer, l.hashAlg)
	if err != nil {
		return Receipt{}, err
	}
	id, err := l.cas.Put(ctx, data)
	if err != nil {
		return Receipt{}, wrapError(KindStorage, "PXM-LDG-051", "store notarization", err)
	}
	l.log.Infof("Notarized %s of %s as %s", e.Operation, e.Digest, id)
	return Receipt{CID: id, Digest: e.Digest}, nil
}

// Lookup fetches a notarization, checks its canonical form and signature,
// and returns the entry it records.
func (l *CASLedger) Lookup(ctx context.Context, id cid.Cid) (*Notarization, Entry, error) {
	data, err := l.cas.Get(ctx, id)
	if err != nil {
		return nil, Entry{}, wrapError(KindStorage, "PXM-LDG-052", "fetch notarization "+id.String(), err)
	}
	n, err := Parse(data)
	if err != nil {
		return nil, Entry{}, err
	}
	if err := n.Verify(); err != nil {
		return nil, Entry{}, err
	}
	e, err := n.Entry()
	if err != nil {
		return nil, Entry{}, err
	}
	l.log.Debugf("Looked up %s (signed=%v)", id, n.IsSigned())
	return n, e, nil
}
