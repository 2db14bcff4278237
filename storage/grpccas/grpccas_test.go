package grpccas

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/pxmark/cidutil"
	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/localfs"
	"xdao.co/pxmark/storage/testkit"
)

func newBufconnClient(t *testing.T, backend storage.CAS) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterDocumentStore(srv, &Server{CAS: backend})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial(context.Background(), "bufnet", DialOptions{
		Extra: []grpc.DialOption{
			grpc.WithContextDialer(dialer),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCCAS_LocalFS_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := newBufconnClient(t, cas)

	payload := []byte("hello ledger")
	id, err := client.Put(ctx, payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !id.Defined() {
		t.Fatalf("expected defined CID")
	}
	if !client.Has(ctx, id) {
		t.Fatalf("Has: expected true")
	}
	if !cas.Has(ctx, id) {
		t.Fatalf("backing store did not receive the object")
	}
	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		return newBufconnClient(t, storage.NewMemoryCAS())
	})
}

func TestGRPCCAS_NotFoundMapsToSentinel(t *testing.T) {
	client := newBufconnClient(t, storage.NewMemoryCAS())
	id, err := cidutil.Sum([]byte("never stored"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if _, err := client.Get(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.Get(context.Background(), cid.Undef); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("expected ErrInvalidCID, got %v", err)
	}
}

func TestStatusMapping_KeepsLedgerSentinels(t *testing.T) {
	for _, m := range codeOf {
		err := mapRPC(mapErr(fmt.Errorf("fetch notarization: %w", m.err)))
		if !errors.Is(err, m.err) {
			t.Fatalf("%v did not survive the wire: got %v", m.err, err)
		}
	}
	down := errors.New("connection refused")
	if got := mapRPC(down); got != down {
		t.Fatalf("non-status errors must pass through, got %v", got)
	}
	if mapErr(nil) != nil || mapRPC(nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}
