package grpccas

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// serviceName matches ledger_cas.proto. Requests and replies are protobuf
// wrapper types, so the service needs no generated code.
const serviceName = "xdao.pxmark.ledger.v1.DocumentStore"

const (
	methodStore = "/" + serviceName + "/StoreDocument"
	methodFetch = "/" + serviceName + "/FetchDocument"
	methodHas   = "/" + serviceName + "/HasDocument"
)

// DocumentStoreServer is what a ledger daemon implements. Documents are
// addressed by the CIDv1 (raw, sha2-256) of their bytes.
type DocumentStoreServer interface {
	// StoreDocument stores a notarization document and returns its CID.
	StoreDocument(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	// FetchDocument returns the document for a CID, NotFound when absent.
	FetchDocument(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	HasDocument(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// RegisterDocumentStore serves srv on s.
func RegisterDocumentStore(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&documentStoreDesc, srv)
}

var documentStoreDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StoreDocument", Handler: unary(methodStore, DocumentStoreServer.StoreDocument)},
		{MethodName: "FetchDocument", Handler: unary(methodFetch, DocumentStoreServer.FetchDocument)},
		{MethodName: "HasDocument", Handler: unary(methodHas, DocumentStoreServer.HasDocument)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger_cas.proto",
}

// unary adapts one DocumentStoreServer method to a gRPC method handler.
func unary[In any, Out any](method string, call func(DocumentStoreServer, context.Context, *In) (Out, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(DocumentStoreServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*In))
		})
	}
}
