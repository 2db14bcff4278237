package ownership

import (
	"errors"
	"strings"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindValidation         Kind = "Validation"
	KindCapacity           Kind = "Capacity"
	KindAlreadyWatermarked Kind = "AlreadyWatermarked"
	KindPasskeyMismatch    Kind = "PasskeyMismatch"
	KindSink               Kind = "Sink"
	KindInternal           Kind = "Internal"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. PXM-AUTH-001). Message is for humans;
// do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
// For ValidationErrors it is the RuleID of the first violation.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// ValidationErrors carries every input violation found for one request, in
// rule order.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error { return v }

// RuleIDs lists the RuleID of each violation.
func (v ValidationErrors) RuleIDs() []string {
	out := make([]string, len(v))
	for i, err := range v {
		out[i] = RuleID(err)
	}
	return out
}
