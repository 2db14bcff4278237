package main

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"xdao.co/pxmark/keys"
	"xdao.co/pxmark/model"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "key: expected subcommand: init, list or show")
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "key: unknown subcommand: %s\n", args[0])
		return 2
	}
}

func keyFlagSet(name string, errOut io.Writer) (*pflag.FlagSet, *string, *bool) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("key-dir", "", "key store directory (default ~/.pxmark/keys)")
	jsonOut := fs.Bool("json", false, "print JSON results")
	return fs, dir, jsonOut
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs, dir, jsonOut := keyFlagSet("key init", errOut)
	var (
		name    string
		seedHex string
		force   bool
	)
	fs.StringVar(&name, "name", "", "key name")
	fs.StringVar(&seedHex, "seed-hex", "", "32-byte seed as hex (default random)")
	fs.BoolVar(&force, "force", false, "overwrite an existing key")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if name == "" {
		fmt.Fprintln(errOut, "key init: missing --name")
		return 2
	}

	var (
		seed []byte
		err  error
	)
	if seedHex != "" {
		seed, err = keys.ParseSeedHex(seedHex)
	} else {
		seed, err = keys.GenerateSeed(rand.Reader)
	}
	if err != nil {
		fmt.Fprintf(errOut, "key init: %v\n", err)
		return 2
	}
	ks, err := keys.Open(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "key init: %v\n", err)
		return 1
	}
	path, err := ks.Init(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "key init: %v\n", err)
		return 1
	}
	signer := keys.NewEd25519Signer(seed)
	info := model.KeyInfo{Name: name, Algorithm: signer.Algorithm(), IssuerKey: signer.IssuerKey(), Path: path}
	if *jsonOut {
		return printJSONTo(out, errOut, info)
	}
	fmt.Fprintf(out, "Key written: %s\n", path)
	fmt.Fprintf(out, "Issuer-Key: %s\n", info.IssuerKey)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs, dir, jsonOut := keyFlagSet("key list", errOut)
	if code := parse(fs, args); code >= 0 {
		return code
	}
	ks, err := keys.Open(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "key list: %v\n", err)
		return 1
	}
	names, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "key list: %v\n", err)
		return 1
	}
	if *jsonOut {
		if names == nil {
			names = []string{}
		}
		return printJSONTo(out, errOut, names)
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return 0
}

// cmdKeyShow prints the issuer key a stored seed produces for an algorithm.
func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs, dir, jsonOut := keyFlagSet("key show", errOut)
	var name, alg string
	fs.StringVar(&name, "name", "", "key name")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "signature algorithm: ed25519|dilithium3")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if name == "" {
		fmt.Fprintln(errOut, "key show: missing --name")
		return 2
	}
	if alg != keys.AlgEd25519 && alg != keys.AlgDilithium3 {
		fmt.Fprintf(errOut, "key show: unsupported algorithm %q\n", alg)
		return 2
	}
	ks, err := keys.Open(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "key show: %v\n", err)
		return 1
	}
	signer, err := ks.Signer(name, alg)
	if err != nil {
		fmt.Fprintf(errOut, "key show: %v\n", err)
		return 1
	}
	info := model.KeyInfo{Name: name, Algorithm: signer.Algorithm(), IssuerKey: signer.IssuerKey()}
	if *jsonOut {
		return printJSONTo(out, errOut, info)
	}
	fmt.Fprintln(out, info.IssuerKey)
	return 0
}
