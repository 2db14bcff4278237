package casconfig

import (
	"context"
	"testing"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
	"xdao.co/pxmark/storage/localfs"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "empty", cfg: Config{}},
		{name: "no name", cfg: Config{Backends: []BackendConfig{{}}}},
		{name: "duplicate id", cfg: Config{Backends: []BackendConfig{{Name: "localfs"}, {Name: "localfs"}}}},
		{name: "bad policy", cfg: Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "localfs"}}}},
		{name: "aliased", cfg: Config{WritePolicy: "all", Backends: []BackendConfig{{Name: "localfs", ID: "a"}, {Name: "localfs", ID: "b"}}}, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpen_WriteAllReplicates(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	cfg := Config{
		WritePolicy: "all",
		Backends: []BackendConfig{
			{Name: "localfs", ID: "a", Config: map[string]string{"localfs-dir": dirA}},
			{Name: "localfs", ID: "b", Config: map[string]string{"localfs-dir": dirB}},
		},
	}
	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok := cas.(storage.ReplicatingCAS); !ok {
		t.Fatalf("expected ReplicatingCAS, got %T", cas)
	}

	ctx := context.Background()
	id, err := cas.Put(ctx, []byte("replicated"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	for _, dir := range []string{dirA, dirB} {
		direct, err := localfs.New(dir)
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		if !direct.Has(ctx, id) {
			t.Fatalf("backend %s missing %s", dir, id)
		}
	}
}

func TestOpen_PreferredBackendTakesWrites(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	cfg := Config{
		Backends: []BackendConfig{
			{Name: "localfs", ID: "a", Config: map[string]string{"localfs-dir": dirA}},
			{Name: "localfs", ID: "b", Config: map[string]string{"localfs-dir": dirB}},
		},
	}
	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "b")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = closeFn() }()

	ctx := context.Background()
	id, err := cas.Put(ctx, []byte("first only"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	a, _ := localfs.New(dirA)
	b, _ := localfs.New(dirB)
	if a.Has(ctx, id) || !b.Has(ctx, id) {
		t.Fatalf("write did not go to the preferred backend only")
	}

	if _, _, err := cfg.Open(casregistry.UsageCLI, "zzz"); err == nil {
		t.Fatalf("expected error for unknown preferred backend")
	}
}

func TestOpen_MissingBackendConfig(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{{Name: "localfs"}}}
	if _, _, err := cfg.Open(casregistry.UsageCLI, ""); err == nil {
		t.Fatalf("expected error for missing localfs-dir")
	}
	cfg = Config{Backends: []BackendConfig{{Name: "nope"}}}
	if _, _, err := cfg.Open(casregistry.UsageCLI, ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
