// Command ledger_vector_gen prints a deterministic signed notarization for
// use as a fixture by other ledger implementations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"xdao.co/pxmark/keys"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/passkey"
	"xdao.co/pxmark/record"
	"xdao.co/pxmark/storage"
)

func seed(b byte) []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = b
	}
	return s
}

func main() {
	alg := keys.AlgEd25519
	if len(os.Args) > 1 {
		alg = os.Args[1]
	}
	if err := run(os.Stdout, alg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out io.Writer, alg string) error {
	signer, err := keys.NewSigner(alg, seed(0xA1))
	if err != nil {
		return err
	}
	hashAlg := ledger.HashSHA256
	if alg == keys.AlgDilithium3 {
		hashAlg = ledger.HashSHA3256
	}

	cas := storage.NewMemoryCAS()
	l, err := ledger.NewCASLedger(cas,
		ledger.WithSigner(signer),
		ledger.WithHashAlg(hashAlg),
		ledger.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		return err
	}
	entry, err := ledger.NewEntry(ledger.OpOwnership, record.Record{
		Owner:       "Alice",
		Timestamp:   "2024-01-01 00:00:00",
		PasskeyHash: passkey.Hash("pk123"),
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	receipt, err := l.Notarize(ctx, entry)
	if err != nil {
		return err
	}
	doc, err := cas.Get(ctx, receipt.CID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "CID=%s\n", receipt.CID)
	fmt.Fprintf(out, "---BEGIN---\n%s\n---END---\n", doc)
	return nil
}
