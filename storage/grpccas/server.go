package grpccas

import (
	"context"

	"github.com/decred/slog"
	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/pxmark/cidutil"
	"xdao.co/pxmark/storage"
)

// Server serves the notarization documents in CAS to remote pxmark ledgers.
// It re-hashes what the backend returns, so a damaged store surfaces as
// DataLoss rather than a wrong document.
type Server struct {
	CAS storage.CAS

	// Log receives one line per mutating call. Nil disables logging.
	Log slog.Logger
}

func (s *Server) log() slog.Logger {
	if s.Log == nil {
		return slog.Disabled
	}
	return s.Log
}

func (s *Server) StoreDocument(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing CAS")
	}
	b := in.GetValue()
	expected, err := cidutil.Sum(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	id, err := s.CAS.Put(ctx, b)
	if err != nil {
		s.log().Warnf("Store document (%d bytes): %v", len(b), err)
		return nil, mapErr(err)
	}
	if id != expected {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	s.log().Debugf("Stored document %s (%d bytes)", id, len(b))
	return wrapperspb.String(id.String()), nil
}

func (s *Server) FetchDocument(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing CAS")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	b, err := s.CAS.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	got, err := cidutil.Sum(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if got != id {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) HasDocument(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing CAS")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	return wrapperspb.Bool(s.CAS.Has(ctx, id)), nil
}

var _ DocumentStoreServer = (*Server)(nil)
