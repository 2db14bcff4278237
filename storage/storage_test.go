package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/testkit"
)

func TestMemoryCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.NewMemoryCAS()
	})
}

func TestMultiCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.MultiCAS{Adapters: []storage.CAS{storage.NewMemoryCAS(), storage.NewMemoryCAS()}}
	})
}

func TestReplicatingCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "a", CAS: storage.NewMemoryCAS()},
			{Name: "b", CAS: storage.NewMemoryCAS()},
		}}
	})
}

func TestMultiCAS_ReadFallsBackInOrder(t *testing.T) {
	ctx := context.Background()
	first, second := storage.NewMemoryCAS(), storage.NewMemoryCAS()
	id, err := second.Put(ctx, []byte("only in second"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}
	if _, err := m.Get(ctx, id); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if _, err := m.Put(ctx, []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("MultiCAS must write only to the first adapter: %d/%d", first.Len(), second.Len())
	}
}

type liarCAS struct{ storage.CAS }

func (l liarCAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	return l.CAS.Put(ctx, append([]byte("x"), data...))
}

func TestReplicatingCAS_DetectsMismatch(t *testing.T) {
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "honest", CAS: storage.NewMemoryCAS()},
		{Name: "liar", CAS: liarCAS{storage.NewMemoryCAS()}},
	}}
	_, got, err := r.PutAll(context.Background(), []byte("doc"))
	if !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
	if _, ok := got["liar"]; !ok {
		t.Fatalf("expected per-backend result for the mismatching backend")
	}
}

func TestMemoryCAS_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := storage.NewMemoryCAS().Put(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
