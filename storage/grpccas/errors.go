package grpccas

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/pxmark/storage"
)

// Status codes carry the storage sentinels across the wire so a remote
// ledger fails the same way a local one does: ledger.Lookup of an unknown
// notarization still matches storage.IsNotFound, and a daemon that returns
// the wrong document still reads as storage.ErrCIDMismatch.
var codeOf = []struct {
	err  error
	code codes.Code
}{
	{storage.ErrNotFound, codes.NotFound},
	{storage.ErrInvalidCID, codes.InvalidArgument},
	{storage.ErrCIDMismatch, codes.DataLoss},
	{storage.ErrImmutable, codes.AlreadyExists},
}

// mapErr is the server side: backend error to status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range codeOf {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// mapRPC is the client side: status back to the storage sentinel. Codes
// without a sentinel (Unavailable when the daemon is down) pass through.
func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if err == nil || !ok {
		return err
	}
	for _, m := range codeOf {
		if st.Code() == m.code {
			return m.err
		}
	}
	return err
}
