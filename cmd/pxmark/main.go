// Command pxmark embeds, reads and transfers invisible ownership watermarks
// in PNG and BMP images.
package main

import (
	"fmt"
	"io"
	"os"

	_ "xdao.co/pxmark/storage/grpccas"
	_ "xdao.co/pxmark/storage/kubo"
	_ "xdao.co/pxmark/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "embed":
		return cmdEmbed(args[1:], out, errOut)
	case "scan":
		return cmdScan(args[1:], out, errOut)
	case "resell":
		return cmdResell(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "capacity":
		return cmdCapacity(args[1:], out, errOut)
	case "ledger":
		return cmdLedger(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "pxmark: invisible ownership watermarks for images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pxmark embed <image> --owner <name> [--buyer <name>] [--datetime \"YYYY-MM-DD HH:MM:SS\"] [--passkey <p>] [-o <out.png|out.bmp>]")
	fmt.Fprintln(w, "  pxmark scan <image> [<image> ...]")
	fmt.Fprintln(w, "  pxmark resell <image> [--current-passkey <p>] [--owner <name>] [--buyer <name>] [--new-passkey <p>] [-o <out>]")
	fmt.Fprintln(w, "  pxmark verify <image> [--passkey <p>]")
	fmt.Fprintln(w, "  pxmark capacity <image>")
	fmt.Fprintln(w, "  pxmark ledger get <cid> [--raw]")
	fmt.Fprintln(w, "  pxmark ledger export -o <archive.tar> <cid> [<cid> ...]")
	fmt.Fprintln(w, "  pxmark ledger import <archive.tar>")
	fmt.Fprintln(w, "  pxmark key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  pxmark key list")
	fmt.Fprintln(w, "  pxmark key show --name <name> [--alg ed25519|dilithium3]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file.jsonc>   configuration file")
	fmt.Fprintln(w, "  --log-level <level>     trace|debug|info|warn|error|off")
	fmt.Fprintln(w, "  --json                  print machine-readable results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - passkeys not given as flags are prompted for on the terminal")
	fmt.Fprintln(w, "  - output must be PNG or BMP; lossy formats destroy the watermark")
	fmt.Fprintln(w, "  - the ledger is used when configured (config file or --backend)")
	fmt.Fprintln(w, "  - exit status: 0 ok, 1 operation failed, 2 usage error")
}
