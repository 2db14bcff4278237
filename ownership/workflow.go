// Package ownership decides whether a watermark may be written into an image
// and writes it.
//
// Callers inspect a buffer first and pass the Inspection back in, so every
// decision depends only on its arguments:
//
//	prior := w.Inspect(pixels)
//	res, err := w.EmbedNew(ctx, pixels, prior, ownership.EmbedRequest{...})
//
// Input validation runs before anything else and reports every violation at
// once. The input buffer is never modified; Result.Buffer is a new buffer.
package ownership

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"

	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/lsb"
	"xdao.co/pxmark/passkey"
	"xdao.co/pxmark/record"
)

// EmbedRequest describes a first watermark. An empty Timestamp means now.
type EmbedRequest struct {
	Owner     string
	Buyer     string
	Timestamp string
	Passkey   string
	Confirm   string
}

// ResellRequest describes an ownership transfer. CurrentPasskey is only
// checked when the existing record is protected.
type ResellRequest struct {
	CurrentPasskey string
	NewOwner       string
	NewBuyer       string
	NewPasskey     string
	Confirm        string
}

// Result is a successful write.
//
// SinkErr reports a notarization failure. The watermark in Buffer is valid
// regardless.
type Result struct {
	Buffer  lsb.PixelBuffer
	Record  record.Record
	Payload string
	Receipt ledger.Receipt
	SinkErr error
}

// Workflow holds the collaborators for embed and resell. It is immutable
// after New and safe for concurrent use when its sink is.
type Workflow struct {
	sink           ledger.Sink
	now            func() time.Time
	log            slog.Logger
	requirePasskey bool
	mode           compliance.Mode
}

type Option func(*Workflow)

// WithSink notarizes every written record. The default is ledger.Discard.
func WithSink(s ledger.Sink) Option { return func(w *Workflow) { w.sink = s } }

func WithClock(now func() time.Time) Option { return func(w *Workflow) { w.now = now } }

func WithLogger(log slog.Logger) Option { return func(w *Workflow) { w.log = log } }

// WithRequirePasskey controls whether new records must carry a passkey.
// It defaults to true.
func WithRequirePasskey(v bool) Option { return func(w *Workflow) { w.requirePasskey = v } }

// WithCompliance sets the parse mode used by Inspect.
func WithCompliance(m compliance.Mode) Option { return func(w *Workflow) { w.mode = m } }

func New(opts ...Option) *Workflow {
	w := &Workflow{
		sink:           ledger.Discard,
		now:            time.Now,
		log:            slog.Disabled,
		requirePasskey: true,
		mode:           compliance.Permissive,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Inspect is the package-level Inspect with the workflow's compliance mode.
func (w *Workflow) Inspect(buf lsb.PixelBuffer) Inspection {
	return Inspect(buf, w.mode)
}

// EmbedNew writes a first watermark into buf. It refuses when prior holds an
// ownership record. Corrupted low bits with no decodable record count as a
// new image and are overwritten.
func (w *Workflow) EmbedNew(ctx context.Context, buf lsb.PixelBuffer, prior Inspection, req EmbedRequest) (Result, error) {
	if err := validate(EmbedRules(req, w.requirePasskey)); err != nil {
		return Result{}, err
	}
	if _, ok := priorRecord(prior); ok {
		return Result{}, newError(KindAlreadyWatermarked, "PXM-STATE-001",
			"Image already has a watermark. Resell to update it.")
	}
	if prior.State == Corrupted {
		w.log.Debugf("Overwriting undecodable watermark text: %v", prior.Err)
	}

	ts := req.Timestamp
	if ts == "" {
		ts = record.FormatTime(w.now())
	}
	r := record.Record{
		Owner:     req.Owner,
		Buyer:     req.Buyer,
		Timestamp: ts,
	}
	if req.Passkey != "" {
		r.PasskeyHash = passkey.Hash(req.Passkey)
	}
	return w.write(ctx, buf, r, ledger.OpOwnership)
}

// Resell replaces the watermark in buf with a record for a new owner.
//
// It is authorized when buf holds no decodable record, when the existing
// record is unprotected, or when CurrentPasskey matches the stored hash.
func (w *Workflow) Resell(ctx context.Context, buf lsb.PixelBuffer, prior Inspection, req ResellRequest) (Result, error) {
	if err := validate(ResellRules(req, w.requirePasskey)); err != nil {
		return Result{}, err
	}
	if err := VerifyPasskey(prior, req.CurrentPasskey); err != nil {
		w.log.Debugf("Resell refused: %v", err)
		return Result{}, err
	}

	r := record.Record{
		Owner:     req.NewOwner,
		Buyer:     req.NewBuyer,
		Timestamp: record.FormatTime(w.now()),
	}
	if req.NewPasskey != "" {
		r.PasskeyHash = passkey.Hash(req.NewPasskey)
	}
	return w.write(ctx, buf, r, ledger.OpResale)
}

// VerifyPasskey reports whether secret authorizes overwriting the inspected
// watermark. Buffers without a decodable record and unprotected records need
// no secret.
func VerifyPasskey(prior Inspection, secret string) error {
	r, ok := priorRecord(prior)
	if !ok || !r.Protected() {
		return nil
	}
	if secret == "" {
		return newError(KindPasskeyMismatch, "PXM-AUTH-002", "Please enter a passkey.")
	}
	if !passkey.Verify(secret, r.PasskeyHash) {
		return newError(KindPasskeyMismatch, "PXM-AUTH-001", "Invalid passkey.")
	}
	return nil
}

// priorRecord returns the ownership record prior carries. A watermark that
// strict mode rejected but that still decodes permissively is a record; an
// undecodable one is not.
func priorRecord(prior Inspection) (record.Record, bool) {
	switch prior.State {
	case Watermarked:
		return prior.Record, true
	case Corrupted:
		r, err := record.Parse(prior.Raw, compliance.Permissive)
		return r, err == nil
	}
	return record.Record{}, false
}

func (w *Workflow) write(ctx context.Context, buf lsb.PixelBuffer, r record.Record, op ledger.Operation) (Result, error) {
	if errs := record.Validate(r); len(errs) > 0 {
		return Result{}, wrapError(KindInternal, "PXM-INT-004", "record is invalid", errs[0])
	}
	payload := record.Serialize(r)
	if n := len(lsb.Frame(payload)); n > lsb.ScanLimit {
		return Result{}, newError(KindCapacity, "PXM-CAP-002",
			fmt.Sprintf("watermark needs %d samples, more than the %d read back by extraction", n, lsb.ScanLimit))
	}
	out, err := lsb.Embed(buf, payload)
	if err != nil {
		if lsb.IsCapacity(err) {
			return Result{}, wrapError(KindCapacity, "PXM-CAP-001", err.Error(), err)
		}
		return Result{}, wrapError(KindInternal, "PXM-INT-002", "embed failed", err)
	}
	got, ok := lsb.Extract(out)
	if !ok {
		return Result{}, newError(KindInternal, "PXM-INT-003", "embedded watermark does not read back")
	}
	if back, err := record.Parse(got, compliance.Strict); err != nil || !record.Equal(back, r) {
		return Result{}, wrapError(KindInternal, "PXM-INT-003", "embedded watermark does not read back", err)
	}
	w.log.Infof("Embedded %s record for owner %q (%d of %d bits)", op, r.Owner,
		len(payload)*8+len(lsb.EOF), len(buf))

	res := Result{Buffer: out, Record: r, Payload: payload}
	entry, err := ledger.NewEntry(op, r)
	if err != nil {
		res.SinkErr = wrapError(KindSink, "PXM-SINK-001", "build ledger entry", err)
		return res, nil
	}
	res.Receipt = ledger.Receipt{Digest: entry.Digest}
	receipt, err := w.sink.Notarize(ctx, entry)
	if err != nil {
		w.log.Warnf("Notarization of %s failed: %v", entry.Digest, err)
		res.SinkErr = wrapError(KindSink, "PXM-SINK-002", "notarization failed", err)
		return res, nil
	}
	res.Receipt = receipt
	return res, nil
}
