package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
)

// Metadata is the descriptive document attached to a notarized record.
// Field order is the JSON key order.
type Metadata struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Owner         string `json:"owner"`
	Buyer         string `json:"buyer"`
	Datetime      string `json:"datetime"`
	WatermarkHash string `json:"watermark_hash"`
}

// NewMetadata describes r for a ledger entry.
func NewMetadata(r Record) Metadata {
	return Metadata{
		Name:          "WatermarkedArt - " + r.Owner,
		Description:   "Invisible watermark record for digital artwork",
		Owner:         r.Owner,
		Buyer:         r.Buyer,
		Datetime:      r.Timestamp,
		WatermarkHash: Digest(r),
	}
}

// TokenURI encodes m as a data:application/json;base64 URI.
func TokenURI(m Metadata) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
