package main

import (
	"context"
	"fmt"
	"io"

	"xdao.co/pxmark/internal/imageio"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/model"
	"xdao.co/pxmark/ownership"
)

func cmdEmbed(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("embed", errOut)
	var (
		output   string
		owner    string
		buyer    string
		datetime string
	)
	fs.StringVarP(&output, "output", "o", "", "output image (.png or .bmp; default <name>_watermarked.png)")
	fs.StringVar(&owner, "owner", "", "owner name")
	fs.StringVar(&buyer, "buyer", "", "buyer name")
	fs.StringVar(&datetime, "datetime", "", "record time as YYYY-MM-DD HH:MM:SS (default now)")
	fs.String("passkey", "", "passkey protecting the record (prompted when omitted)")
	fs.String("confirm", "", "passkey confirmation")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "embed: expected exactly one input image")
		return 2
	}
	in := fs.Arg(0)
	if output == "" {
		output = defaultOutput(in)
	}

	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	defer e.close()

	pk, confirm, err := newSecret(fs, "passkey", "confirm", "Passkey", errOut)
	if err != nil {
		return e.fail(err)
	}
	img, err := readImage(in)
	if err != nil {
		return e.fail(err)
	}
	w := e.workflow()

	res, err := w.EmbedNew(context.Background(), img.Pixels, w.Inspect(img.Pixels), ownership.EmbedRequest{
		Owner:     owner,
		Buyer:     buyer,
		Timestamp: datetime,
		Passkey:   pk,
		Confirm:   confirm,
	})
	if err != nil {
		return e.fail(err)
	}
	return e.finishWrite(img.Width, img.Height, output, ledger.OpOwnership, res)
}

func cmdResell(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("resell", errOut)
	var (
		output string
		owner  string
		buyer  string
	)
	fs.StringVarP(&output, "output", "o", "", "output image (.png or .bmp; default <name>_watermarked.png)")
	fs.StringVar(&owner, "owner", "", "new owner name")
	fs.StringVar(&buyer, "buyer", "", "new buyer name")
	fs.String("current-passkey", "", "passkey of the existing record (prompted when protected)")
	fs.String("new-passkey", "", "passkey protecting the new record (prompted when omitted)")
	fs.String("confirm", "", "new passkey confirmation")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "resell: expected exactly one input image")
		return 2
	}
	in := fs.Arg(0)
	if output == "" {
		output = defaultOutput(in)
	}

	e, err := loadEnv(common, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	defer e.close()

	img, err := readImage(in)
	if err != nil {
		return e.fail(err)
	}
	w := e.workflow()
	prior := w.Inspect(img.Pixels)

	var current string
	if prior.Protected() || fs.Changed("current-passkey") {
		if current, err = secret(fs, "current-passkey", "Current passkey: ", errOut); err != nil {
			return e.fail(err)
		}
	}
	// Fail on a bad current passkey before prompting for a new one.
	if !fs.Changed("new-passkey") {
		if err := ownership.VerifyPasskey(prior, current); err != nil {
			return e.fail(err)
		}
	}
	pk, confirm, err := newSecret(fs, "new-passkey", "confirm", "New passkey", errOut)
	if err != nil {
		return e.fail(err)
	}

	res, err := w.Resell(context.Background(), img.Pixels, prior, ownership.ResellRequest{
		CurrentPasskey: current,
		NewOwner:       owner,
		NewBuyer:       buyer,
		NewPasskey:     pk,
		Confirm:        confirm,
	})
	if err != nil {
		return e.fail(err)
	}
	return e.finishWrite(img.Width, img.Height, output, ledger.OpResale, res)
}

// finishWrite saves the watermarked image and reports the result. A ledger
// failure is reported but does not fail the command.
func (e *env) finishWrite(width, height int, output string, op ledger.Operation, res ownership.Result) int {
	img := imageio.Image{Width: width, Height: height, Pixels: res.Buffer}
	if err := writeImage(output, img); err != nil {
		return e.fail(err)
	}
	if e.flags.jsonOut {
		if err := e.printJSON(model.FromResult(output, op, res)); err != nil {
			return e.fail(err)
		}
		return 0
	}
	fmt.Fprintf(e.out, "Watermark written: %s\n", output)
	fmt.Fprintf(e.out, "Owner: %s\n", res.Record.Owner)
	if res.Record.Buyer != "" {
		fmt.Fprintf(e.out, "Buyer: %s\n", res.Record.Buyer)
	}
	fmt.Fprintf(e.out, "Datetime: %s\n", res.Record.Timestamp)
	fmt.Fprintf(e.out, "Protected: %t\n", res.Record.Protected())
	fmt.Fprintf(e.out, "Digest: %s\n", res.Receipt.Digest)
	if res.Receipt.CID.Defined() {
		fmt.Fprintf(e.out, "Ledger: %s\n", res.Receipt.CID)
	}
	if res.SinkErr != nil {
		fmt.Fprintf(e.errOut, "warning: %v\n", res.SinkErr)
	}
	return 0
}
