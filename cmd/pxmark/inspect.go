package main

import (
	"fmt"
	"io"

	"xdao.co/pxmark/lsb"
	"xdao.co/pxmark/model"
	"xdao.co/pxmark/ownership"
)

// cmdScan reports every image's watermark. Unwatermarked and corrupted images
// are results, not failures; only unreadable files set exit status 1.
func cmdScan(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("scan", errOut)
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "scan: expected at least one image")
		return 2
	}
	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	defer e.close()

	code := 0
	var results []model.ScanResult
	for _, path := range fs.Args() {
		img, err := readImage(path)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			code = 1
			continue
		}
		in := ownership.Inspect(img.Pixels, e.mode())
		e.log.Debugf("Scanned %s: %s", path, in.State)
		res := model.FromInspection(path, img.Pixels, in)
		if e.flags.jsonOut {
			results = append(results, res)
			continue
		}
		printScan(out, res)
	}
	if e.flags.jsonOut {
		if err := e.printJSON(results); err != nil {
			return e.fail(err)
		}
	}
	return code
}

func printScan(w io.Writer, res model.ScanResult) {
	switch res.Status {
	case ownership.Watermarked.String():
		fmt.Fprintf(w, "%s: watermarked\n", res.Path)
		fmt.Fprintf(w, "  Owner: %s\n", res.Record.Owner)
		fmt.Fprintf(w, "  Buyer: %s\n", res.Record.Buyer)
		fmt.Fprintf(w, "  Datetime: %s\n", res.Record.Datetime)
		fmt.Fprintf(w, "  Protected: %t\n", res.Record.Protected)
		fmt.Fprintf(w, "  Digest: %s\n", res.Digest)
	case ownership.Corrupted.String():
		fmt.Fprintf(w, "%s: corrupted (%s)\n", res.Path, res.Error.Message)
	default:
		fmt.Fprintf(w, "%s: no watermark\n", res.Path)
	}
}

// cmdVerify checks a passkey against the image's record without writing.
func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("verify", errOut)
	fs.String("passkey", "", "passkey to check (prompted when omitted)")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "verify: expected exactly one image")
		return 2
	}
	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	defer e.close()

	img, err := readImage(fs.Arg(0))
	if err != nil {
		return e.fail(err)
	}
	in := ownership.Inspect(img.Pixels, e.mode())
	var pk string
	if in.Protected() || fs.Changed("passkey") {
		if pk, err = secret(fs, "passkey", "Passkey: ", errOut); err != nil {
			return e.fail(err)
		}
	}
	if err := ownership.VerifyPasskey(in, pk); err != nil {
		return e.fail(err)
	}
	if e.flags.jsonOut {
		if err := e.printJSON(map[string]any{"path": fs.Arg(0), "status": in.State.String(), "authorized": true}); err != nil {
			return e.fail(err)
		}
		return 0
	}
	switch {
	case in.State == ownership.Unwatermarked:
		fmt.Fprintln(out, "No watermark; any passkey is accepted.")
	case in.State == ownership.Corrupted && !in.Protected():
		fmt.Fprintln(out, "Watermark is unreadable and will be overwritten; no passkey needed.")
	case !in.Protected():
		fmt.Fprintln(out, "Record is unprotected; no passkey needed.")
	default:
		fmt.Fprintln(out, "Passkey verified.")
	}
	return 0
}

func cmdCapacity(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("capacity", errOut)
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "capacity: expected exactly one image")
		return 2
	}
	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	defer e.close()

	img, err := readImage(fs.Arg(0))
	if err != nil {
		return e.fail(err)
	}
	bits := lsb.Capacity(img.Pixels)
	if limit := lsb.ScanLimit - len(lsb.EOF); bits > limit {
		bits = limit
	}
	report := model.CapacityReport{
		Path:         fs.Arg(0),
		Width:        img.Width,
		Height:       img.Height,
		Samples:      len(img.Pixels),
		PayloadBits:  bits,
		PayloadBytes: bits / 8,
	}
	if e.flags.jsonOut {
		if err := e.printJSON(report); err != nil {
			return e.fail(err)
		}
		return 0
	}
	fmt.Fprintf(out, "%s: %dx%d, %d samples\n", report.Path, report.Width, report.Height, report.Samples)
	fmt.Fprintf(out, "Watermark capacity: %d bytes\n", report.PayloadBytes)
	return 0
}
