package model

import (
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/lsb"
	"xdao.co/pxmark/ownership"
	"xdao.co/pxmark/record"
)

type Record struct {
	Owner       string `json:"owner"`
	Buyer       string `json:"buyer"`
	Datetime    string `json:"datetime"`
	PasskeyHash string `json:"passkeyHash,omitempty"`
	Protected   bool   `json:"protected"`
}

func FromRecord(r record.Record) Record {
	return Record{
		Owner:       r.Owner,
		Buyer:       r.Buyer,
		Datetime:    r.Timestamp,
		PasskeyHash: r.PasskeyHash,
		Protected:   r.Protected(),
	}
}

// ScanResult reports what an image carries. Status is one of
// "unwatermarked", "watermarked" or "corrupted".
type ScanResult struct {
	Path         string      `json:"path,omitempty"`
	Status       string      `json:"status"`
	Record       *Record     `json:"record,omitempty"`
	Digest       string      `json:"digest,omitempty"`
	Raw          string      `json:"raw,omitempty"`
	Error        *CodedError `json:"error,omitempty"`
	CapacityBits int         `json:"capacityBits"`
}

func FromInspection(path string, buf lsb.PixelBuffer, in ownership.Inspection) ScanResult {
	out := ScanResult{
		Path:         path,
		Status:       in.State.String(),
		Raw:          in.Raw,
		CapacityBits: lsb.Capacity(buf),
	}
	switch in.State {
	case ownership.Watermarked:
		rec := FromRecord(in.Record)
		out.Record = &rec
		out.Digest = record.Digest(in.Record)
	case ownership.Corrupted:
		out.Error = &CodedError{Code: ErrCorrupted, Message: in.Err.Error()}
		if id := record.RuleID(in.Err); id != "" {
			out.Error.Rules = []string{id}
		}
	}
	return out
}

// WriteResult reports an embed or resell.
type WriteResult struct {
	Output      string      `json:"output"`
	Operation   string      `json:"operation"`
	Record      Record      `json:"record"`
	Payload     string      `json:"payload"`
	Digest      string      `json:"digest"`
	LedgerCID   string      `json:"ledgerCID,omitempty"`
	LedgerError *CodedError `json:"ledgerError,omitempty"`
}

func FromResult(output string, op ledger.Operation, res ownership.Result) WriteResult {
	out := WriteResult{
		Output:    output,
		Operation: string(op),
		Record:    FromRecord(res.Record),
		Payload:   res.Payload,
		Digest:    res.Receipt.Digest,
	}
	if res.Receipt.CID.Defined() {
		out.LedgerCID = res.Receipt.CID.String()
	}
	if res.SinkErr != nil {
		out.LedgerError = &CodedError{Code: ErrLedger, Message: res.SinkErr.Error()}
	}
	return out
}

type CapacityReport struct {
	Path         string `json:"path"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Samples      int    `json:"samples"`
	PayloadBits  int    `json:"payloadBits"`
	PayloadBytes int    `json:"payloadBytes"`
}

// LedgerEntry is a verified notarization.
type LedgerEntry struct {
	CID       string `json:"cid"`
	Operation string `json:"operation"`
	IssuedAt  string `json:"issuedAt"`
	Record    Record `json:"record"`
	Digest    string `json:"digest"`
	RecordCID string `json:"recordCID"`
	TokenURI  string `json:"tokenURI"`
	Signed    bool   `json:"signed"`
	IssuerKey string `json:"issuerKey,omitempty"`
}

func FromNotarization(id string, n *ledger.Notarization, e ledger.Entry) LedgerEntry {
	return LedgerEntry{
		CID:       id,
		Operation: string(e.Operation),
		IssuedAt:  n.Meta["Issued-At"],
		Record:    FromRecord(e.Record),
		Digest:    e.Digest,
		RecordCID: e.CID.String(),
		TokenURI:  e.TokenURI,
		Signed:    n.IsSigned(),
		IssuerKey: n.Crypto["Issuer-Key"],
	}
}

type KeyInfo struct {
	Name      string `json:"name"`
	Algorithm string `json:"algorithm"`
	IssuerKey string `json:"issuerKey"`
	Path      string `json:"path,omitempty"`
}
