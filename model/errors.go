package model

import (
	"errors"
	"fmt"

	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/ownership"
	"xdao.co/pxmark/storage"
)

type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCapacity           ErrorCode = "CAPACITY"
	ErrAlreadyWatermarked ErrorCode = "ALREADY_WATERMARKED"
	ErrCorrupted          ErrorCode = "CORRUPTED"
	ErrPasskeyMismatch    ErrorCode = "PASSKEY_MISMATCH"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrLedger             ErrorCode = "LEDGER"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
// Rules lists the violated rule IDs when known.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Rules   []string  `json:"rules,omitempty"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// ErrorFrom classifies err. It returns nil for a nil error.
func ErrorFrom(err error) *CodedError {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}
	var verrs ownership.ValidationErrors
	if errors.As(err, &verrs) {
		return &CodedError{Code: ErrInvalidRequest, Message: err.Error(), Rules: verrs.RuleIDs()}
	}

	code := ErrInternal
	switch {
	case ownership.IsKind(err, ownership.KindCapacity):
		code = ErrCapacity
	case ownership.IsKind(err, ownership.KindAlreadyWatermarked):
		code = ErrAlreadyWatermarked
	case ownership.IsKind(err, ownership.KindPasskeyMismatch):
		code = ErrPasskeyMismatch
	case storage.IsNotFound(err):
		code = ErrNotFound
	case ownership.IsKind(err, ownership.KindSink), ledger.RuleID(err) != "":
		code = ErrLedger
	}
	out := &CodedError{Code: code, Message: err.Error()}
	if id := ownership.RuleID(err); id != "" {
		out.Rules = []string{id}
	} else if id := ledger.RuleID(err); id != "" {
		out.Rules = []string{id}
	}
	return out
}
