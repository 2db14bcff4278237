package storage

import "errors"

// Errors every CAS backend reports the same way. CASLedger wraps them in a
// KindStorage error, so callers of Notarize and Lookup test them with
// errors.Is.
var (
	// ErrNotFound: no notarization document is stored under the CID.
	// Lookup of an unknown receipt returns it.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidCID: the CID is undefined or is not CIDv1 raw sha2-256.
	ErrInvalidCID = errors.New("storage: invalid cid")
	// ErrCIDMismatch: the bytes a backend returned do not hash to the CID
	// asked for. The document is not trusted.
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	// ErrImmutable: a backend already holds different bytes under the CID.
	ErrImmutable = errors.New("storage: immutable object mismatch")
)

// IsNotFound reports whether err means the document is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
