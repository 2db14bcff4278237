package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/decred/slog"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/grpccas"
)

func TestRun_ListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"--list-backends"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "localfs") {
		t.Fatalf("localfs not listed: %q", out.String())
	}
}

func TestRun_SetupErrors(t *testing.T) {
	cases := [][]string{
		{"--no-such-flag"},
		{"--backend", "nope"},
		{"--backend", "localfs"},
		{"--log-level", "loud", "--backend", "localfs", "--localfs-dir", "x"},
	}
	for _, args := range cases {
		var out, errOut bytes.Buffer
		if code := run(context.Background(), args, &out, &errOut); code != 2 {
			t.Fatalf("%v: exit %d, want 2", args, code)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var out, errOut bytes.Buffer
	go func() {
		done <- run(ctx, []string{"--listen", "127.0.0.1:0", "--backend", "localfs", "--localfs-dir", t.TempDir()}, &out, &errOut)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exit %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("daemon did not stop")
	}
}

func TestServe_RoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, lis, storage.NewMemoryCAS(), slog.Disabled) }()

	c, err := grpccas.Dial(context.Background(), lis.Addr().String(), grpccas.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	data := []byte("-----BEGIN PXMARK NOTARIZATION-----\n")
	id, err := c.Put(context.Background(), data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(context.Background(), id)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("Get: %q, %v", got, err)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
