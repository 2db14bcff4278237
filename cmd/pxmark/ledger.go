package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/internal/logging"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/model"
	"xdao.co/pxmark/storage/bundle"
)

func cmdLedger(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "ledger: expected subcommand: get, export or import")
		return 2
	}
	switch args[0] {
	case "get":
		return cmdLedgerGet(args[1:], out, errOut)
	case "export":
		return cmdLedgerExport(args[1:], out, errOut)
	case "import":
		return cmdLedgerImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "ledger: unknown subcommand: %s\n", args[0])
		return 2
	}
}

// ledgerEnv loads the environment and opens the configured ledger. When the
// returned ledger is nil the environment is already closed and code is the
// exit status.
func ledgerEnv(name string, common *commonFlags, out, errOut io.Writer) (*env, *ledger.CASLedger, int) {
	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, nil, 2
	}
	cas, err := e.openStore()
	if err != nil {
		code := e.fail(err)
		e.close()
		return nil, nil, code
	}
	if cas == nil {
		fmt.Fprintf(errOut, "%s: no ledger configured (use --config or --backend)\n", name)
		e.close()
		return nil, nil, 2
	}
	l, err := ledger.NewCASLedger(cas, ledger.WithLogger(e.logs.Logger(logging.TagLedger)))
	if err != nil {
		code := e.fail(err)
		e.close()
		return nil, nil, code
	}
	return e, l, 0
}

func parseCIDs(name string, args []string, errOut io.Writer) ([]cid.Cid, bool) {
	ids := make([]cid.Cid, 0, len(args))
	for _, a := range args {
		id, err := cid.Decode(a)
		if err != nil {
			fmt.Fprintf(errOut, "%s: invalid CID %q: %v\n", name, a, err)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// cmdLedgerGet fetches a notarization, checks it and prints its entry.
// With --raw the stored document is printed unchanged.
func cmdLedgerGet(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("ledger get", errOut)
	var raw bool
	fs.BoolVar(&raw, "raw", false, "print the stored document")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "ledger get: expected exactly one CID")
		return 2
	}
	ids, ok := parseCIDs("ledger get", fs.Args(), errOut)
	if !ok {
		return 2
	}
	e, l, code := ledgerEnv("ledger get", common, out, errOut)
	if l == nil {
		return code
	}
	defer e.close()

	n, entry, err := l.Lookup(context.Background(), ids[0])
	if err != nil {
		return e.fail(err)
	}
	if raw {
		_, _ = out.Write(n.Raw)
		return 0
	}
	info := model.FromNotarization(ids[0].String(), n, entry)
	if e.flags.jsonOut {
		if err := e.printJSON(info); err != nil {
			return e.fail(err)
		}
		return 0
	}
	fmt.Fprintf(out, "CID: %s\n", info.CID)
	fmt.Fprintf(out, "Operation: %s\n", info.Operation)
	fmt.Fprintf(out, "Issued-At: %s\n", info.IssuedAt)
	fmt.Fprintf(out, "Owner: %s\n", info.Record.Owner)
	fmt.Fprintf(out, "Buyer: %s\n", info.Record.Buyer)
	fmt.Fprintf(out, "Datetime: %s\n", info.Record.Datetime)
	fmt.Fprintf(out, "Digest: %s\n", info.Digest)
	if info.Signed {
		fmt.Fprintf(out, "Signed-By: %s\n", info.IssuerKey)
	} else {
		fmt.Fprintln(out, "Signed-By: (unsigned)")
	}
	return 0
}

// cmdLedgerExport verifies each notarization and writes them to an archive
// labelled <operation>/<record digest>.
func cmdLedgerExport(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("ledger export", errOut)
	var output string
	fs.StringVarP(&output, "output", "o", "", "archive file to write")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if output == "" || fs.NArg() == 0 {
		fmt.Fprintln(errOut, "ledger export: expected -o <archive> and at least one CID")
		return 2
	}
	ids, ok := parseCIDs("ledger export", fs.Args(), errOut)
	if !ok {
		return 2
	}
	e, l, code := ledgerEnv("ledger export", common, out, errOut)
	if l == nil {
		return code
	}
	defer e.close()

	ctx := context.Background()
	labels := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		_, entry, err := l.Lookup(ctx, id)
		if err != nil {
			return e.fail(err)
		}
		labels[string(entry.Operation)+"/"+entry.Digest] = id
	}

	f, err := os.Create(output)
	if err != nil {
		return e.fail(err)
	}
	if err := bundle.Export(ctx, f, l.Store(), ids, bundle.ExportOptions{IncludeIndex: true, Labels: labels}); err != nil {
		_ = f.Close()
		_ = os.Remove(output)
		return e.fail(err)
	}
	if err := f.Close(); err != nil {
		return e.fail(err)
	}
	if !e.flags.jsonOut {
		fmt.Fprintf(out, "Exported %d notarization(s) to %s\n", len(ids), output)
	}
	return 0
}

// cmdLedgerImport stores every block of an archive, then checks that each
// one is a valid notarization. Invalid documents stay stored but fail the
// command.
func cmdLedgerImport(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("ledger import", errOut)
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "ledger import: expected exactly one archive")
		return 2
	}
	e, l, code := ledgerEnv("ledger import", common, out, errOut)
	if l == nil {
		return code
	}
	defer e.close()

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return e.fail(err)
	}
	defer f.Close()

	ctx := context.Background()
	ids, err := bundle.Import(ctx, f, l.Store(), bundle.ImportOptions{})
	if err != nil {
		return e.fail(err)
	}
	var entries []model.LedgerEntry
	for _, id := range ids {
		n, entry, err := l.Lookup(ctx, id)
		if err != nil {
			return e.fail(fmt.Errorf("%s: %w", id, err))
		}
		entries = append(entries, model.FromNotarization(id.String(), n, entry))
	}
	if e.flags.jsonOut {
		if entries == nil {
			entries = []model.LedgerEntry{}
		}
		if err := e.printJSON(entries); err != nil {
			return e.fail(err)
		}
		return 0
	}
	for _, le := range entries {
		fmt.Fprintf(out, "%s\t%s\t%s\n", le.CID, le.Operation, le.Record.Owner)
	}
	return 0
}
