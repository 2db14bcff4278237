// Package model defines the JSON shapes printed by pxmark --json.
//
// The embedded watermark text and ledger documents are unaffected by these
// projections. These structs are the only types intended for direct JSON
// serialization by consumers.
package model
