package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc"

	"xdao.co/pxmark/model"
	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/grpccas"
)

// writeTestPNG writes a w x h image whose samples all have a zero low bit, so
// no sentinel can appear by chance.
func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x*4) &^ 1, G: uint8(y*4) &^ 1, B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, "art.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func scanJSON(t *testing.T, path string) model.ScanResult {
	t.Helper()
	code, out, errOut := runCmd(t, "scan", "--json", path)
	if code != 0 {
		t.Fatalf("scan exit %d: %s", code, errOut)
	}
	var results []model.ScanResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("scan output: %v\n%s", err, out)
	}
	if len(results) != 1 {
		t.Fatalf("expected one scan result, got %d", len(results))
	}
	return results[0]
}

func TestRun_Usage(t *testing.T) {
	if code, _, _ := runCmd(t); code != 2 {
		t.Fatalf("no args: exit %d, want 2", code)
	}
	if code, _, _ := runCmd(t, "bogus"); code != 2 {
		t.Fatalf("unknown command: exit %d, want 2", code)
	}
	code, out, _ := runCmd(t, "help")
	if code != 0 || !strings.Contains(out, "pxmark embed") {
		t.Fatalf("help: exit %d, output %q", code, out)
	}
	if code, _, _ := runCmd(t, "embed"); code != 2 {
		t.Fatalf("embed without image: exit %d, want 2", code)
	}
	if code, _, _ := runCmd(t, "embed", "--no-such-flag", "x.png"); code != 2 {
		t.Fatalf("bad flag: exit %d, want 2", code)
	}
}

func TestEmbedScanResell(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)
	marked := filepath.Join(dir, "marked.png")

	if got := scanJSON(t, in); got.Status != "unwatermarked" {
		t.Fatalf("fresh image status %q", got.Status)
	}

	code, _, errOut := runCmd(t, "embed", in, "-o", marked,
		"--owner", "Alice", "--datetime", "2024-01-01 00:00:00", "--passkey", "pk123")
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	got := scanJSON(t, marked)
	if got.Status != "watermarked" || got.Record == nil {
		t.Fatalf("marked image: %+v", got)
	}
	if got.Record.Owner != "Alice" || got.Record.Datetime != "2024-01-01 00:00:00" || !got.Record.Protected {
		t.Fatalf("unexpected record: %+v", got.Record)
	}

	// A second embed is refused.
	code, out, _ := runCmd(t, "embed", marked, "-o", filepath.Join(dir, "again.png"),
		"--owner", "Mallory", "--passkey", "x", "--json")
	if code != 1 || !strings.Contains(out, string(model.ErrAlreadyWatermarked)) {
		t.Fatalf("re-embed: exit %d, output %s", code, out)
	}

	if code, _, _ := runCmd(t, "verify", marked, "--passkey", "pk123"); code != 0 {
		t.Fatalf("verify with right passkey: exit %d", code)
	}
	if code, _, _ := runCmd(t, "verify", marked, "--passkey", "nope"); code != 1 {
		t.Fatalf("verify with wrong passkey: exit %d", code)
	}

	resold := filepath.Join(dir, "resold.bmp")
	code, _, errOut = runCmd(t, "resell", marked, "-o", resold,
		"--current-passkey", "wrong", "--owner", "Bob", "--new-passkey", "pk456")
	if code != 1 || !strings.Contains(errOut, "Invalid passkey.") {
		t.Fatalf("resell with wrong passkey: exit %d, stderr %q", code, errOut)
	}
	if _, err := os.Stat(resold); !os.IsNotExist(err) {
		t.Fatalf("refused resell must not write output")
	}

	code, _, errOut = runCmd(t, "resell", marked, "-o", resold,
		"--current-passkey", "pk123", "--owner", "Bob", "--buyer", "Alice", "--new-passkey", "pk456")
	if code != 0 {
		t.Fatalf("resell exit %d: %s", code, errOut)
	}
	got = scanJSON(t, resold)
	if got.Status != "watermarked" || got.Record.Owner != "Bob" || got.Record.Buyer != "Alice" {
		t.Fatalf("resold image: %+v", got)
	}
}

func TestEmbed_ValidationFailures(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)

	code, out, _ := runCmd(t, "embed", in, "--json")
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	var resp map[string]model.CodedError
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output: %v\n%s", err, out)
	}
	e := resp["error"]
	if e.Code != model.ErrInvalidRequest || len(e.Rules) != 2 {
		t.Fatalf("unexpected error: %+v", e)
	}

	code, _, errOut := runCmd(t, "embed", in, "--owner", "A", "--passkey", "a", "--confirm", "b")
	if code != 1 || !strings.Contains(errOut, "Passkeys do not match.") {
		t.Fatalf("mismatched confirm: exit %d, stderr %q", code, errOut)
	}
	if _, err := os.Stat(defaultOutput(in)); !os.IsNotExist(err) {
		t.Fatalf("failed embed must not write output")
	}
}

func TestEmbed_Capacity(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 8, 8)
	code, out, _ := runCmd(t, "embed", in, "--owner", "Alice", "--passkey", "pk", "--json")
	if code != 1 || !strings.Contains(out, string(model.ErrCapacity)) {
		t.Fatalf("exit %d, output %s", code, out)
	}

	code, out, _ = runCmd(t, "capacity", in, "--json")
	if code != 0 {
		t.Fatalf("capacity exit %d", code)
	}
	var report model.CapacityReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("capacity output: %v", err)
	}
	if report.Samples != 192 || report.PayloadBits != 176 || report.PayloadBytes != 22 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestScan_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if code, _, _ := runCmd(t, "scan", bad); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
}

func TestLedger_SignedNotarization(t *testing.T) {
	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	ledgerDir := filepath.Join(dir, "ledger")
	in := writeTestPNG(t, dir, 48, 32)

	code, _, errOut := runCmd(t, "key", "init", "--key-dir", keyDir, "--name", "gallery",
		"--seed-hex", strings.Repeat("07", 32))
	if code != 0 {
		t.Fatalf("key init exit %d: %s", code, errOut)
	}
	code, out, _ := runCmd(t, "key", "list", "--key-dir", keyDir)
	if code != 0 || strings.TrimSpace(out) != "gallery" {
		t.Fatalf("key list: exit %d, output %q", code, out)
	}
	code, issuer, _ := runCmd(t, "key", "show", "--key-dir", keyDir, "--name", "gallery", "--alg", "dilithium3")
	if code != 0 || !strings.HasPrefix(issuer, "dilithium3:") {
		t.Fatalf("key show: exit %d, output %q", code, issuer)
	}

	code, out, errOut = runCmd(t, "embed", in, "-o", filepath.Join(dir, "m.png"), "--json",
		"--owner", "Alice", "--passkey", "pk123",
		"--backend", "localfs", "--localfs-dir", ledgerDir,
		"--key-dir", keyDir, "--signer", "gallery", "--signer-alg", "dilithium3")
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	var wr model.WriteResult
	if err := json.Unmarshal([]byte(out), &wr); err != nil {
		t.Fatalf("embed output: %v\n%s", err, out)
	}
	if wr.LedgerCID == "" || wr.LedgerError != nil {
		t.Fatalf("expected a notarization: %+v", wr)
	}

	code, out, errOut = runCmd(t, "ledger", "get", wr.LedgerCID, "--json",
		"--backend", "localfs", "--localfs-dir", ledgerDir)
	if code != 0 {
		t.Fatalf("ledger get exit %d: %s", code, errOut)
	}
	var le model.LedgerEntry
	if err := json.Unmarshal([]byte(out), &le); err != nil {
		t.Fatalf("ledger output: %v\n%s", err, out)
	}
	if le.Operation != "ownership" || le.Record.Owner != "Alice" || le.Digest != wr.Digest {
		t.Fatalf("unexpected entry: %+v", le)
	}
	if !le.Signed || le.IssuerKey != strings.TrimSpace(issuer) {
		t.Fatalf("entry not signed by the gallery key: %+v", le)
	}

	code, out, _ = runCmd(t, "ledger", "get", wr.LedgerCID, "--raw",
		"--backend", "localfs", "--localfs-dir", ledgerDir)
	if code != 0 || !strings.HasPrefix(out, "-----BEGIN PXMARK NOTARIZATION-----") {
		t.Fatalf("raw get: exit %d, output %q", code, out)
	}
}

func TestLedger_Usage(t *testing.T) {
	if code, _, _ := runCmd(t, "ledger", "get", "not-a-cid"); code != 2 {
		t.Fatalf("bad CID: exit %d, want 2", code)
	}
	if code, _, _ := runCmd(t, "ledger", "get", "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy"); code != 2 {
		t.Fatalf("no ledger configured: exit %d, want 2", code)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)
	cfgPath := filepath.Join(dir, "pxmark.jsonc")
	cfg := `{
  // unprotected records allowed
  "require_passkey": false,
  "compliance": "strict",
  "ledger": {
    "backends": [{"name": "localfs", "config": {"localfs-dir": "` + filepath.ToSlash(filepath.Join(dir, "ledger")) + `"}}],
  },
}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, out, errOut := runCmd(t, "embed", in, "--config", cfgPath, "--owner", "Dana", "--json")
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	var wr model.WriteResult
	if err := json.Unmarshal([]byte(out), &wr); err != nil {
		t.Fatalf("embed output: %v", err)
	}
	if wr.Record.Protected || wr.LedgerCID == "" {
		t.Fatalf("unexpected result: %+v", wr)
	}

	if err := os.WriteFile(cfgPath, []byte(`{"colour": "blue"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code, _, _ := runCmd(t, "scan", "--config", cfgPath, in); code != 2 {
		t.Fatalf("bad config: exit %d, want 2", code)
	}
}

func TestLedger_ExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	archive := filepath.Join(dir, "ledger.tar")
	in := writeTestPNG(t, dir, 48, 32)

	code, out, errOut := runCmd(t, "embed", in, "-o", filepath.Join(dir, "m.png"), "--json",
		"--owner", "Alice", "--passkey", "pk123", "--backend", "localfs", "--localfs-dir", src)
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	var wr model.WriteResult
	if err := json.Unmarshal([]byte(out), &wr); err != nil {
		t.Fatalf("embed output: %v", err)
	}

	code, _, errOut = runCmd(t, "ledger", "export", "-o", archive, wr.LedgerCID,
		"--backend", "localfs", "--localfs-dir", src)
	if code != 0 {
		t.Fatalf("export exit %d: %s", code, errOut)
	}
	code, out, errOut = runCmd(t, "ledger", "import", archive, "--json",
		"--backend", "localfs", "--localfs-dir", dst)
	if code != 0 {
		t.Fatalf("import exit %d: %s", code, errOut)
	}
	var entries []model.LedgerEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("import output: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].CID != wr.LedgerCID || entries[0].Record.Owner != "Alice" {
		t.Fatalf("unexpected import: %+v", entries)
	}

	if code, _, _ := runCmd(t, "ledger", "get", wr.LedgerCID, "--backend", "localfs", "--localfs-dir", dst); code != 0 {
		t.Fatalf("imported notarization not readable: exit %d", code)
	}
	if code, _, _ := runCmd(t, "ledger", "export", wr.LedgerCID); code != 2 {
		t.Fatalf("export without -o: exit %d, want 2", code)
	}
}

func TestLedger_RemoteDaemon(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	grpccas.RegisterDocumentStore(srv, &grpccas.Server{CAS: storage.NewMemoryCAS()})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	target := lis.Addr().String()

	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)
	code, out, errOut := runCmd(t, "embed", in, "-o", filepath.Join(dir, "m.png"), "--json",
		"--owner", "Alice", "--passkey", "pk123", "--backend", "grpc", "--grpc-target", target)
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	var wr model.WriteResult
	if err := json.Unmarshal([]byte(out), &wr); err != nil {
		t.Fatalf("embed output: %v", err)
	}
	if wr.LedgerCID == "" {
		t.Fatalf("expected a notarization: %+v", wr)
	}
	code, out, errOut = runCmd(t, "ledger", "get", wr.LedgerCID, "--backend", "grpc", "--grpc-target", target)
	if code != 0 || !strings.Contains(out, "Owner: Alice") {
		t.Fatalf("ledger get: exit %d, output %q, stderr %q", code, out, errOut)
	}
}

func TestWrite_UnopenableLedgerIsAWarning(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	ledgerFlags := []string{"--backend", "localfs", "--localfs-dir", filepath.Join(blocker, "ledger")}

	marked := filepath.Join(dir, "m.png")
	args := append([]string{"embed", in, "-o", marked, "--owner", "Alice", "--passkey", "pk123"}, ledgerFlags...)
	code, _, errOut := runCmd(t, args...)
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Fatalf("expected a ledger warning, got %q", errOut)
	}
	if got := scanJSON(t, marked); got.Status != "watermarked" {
		t.Fatalf("image not written: %+v", got)
	}

	resold := filepath.Join(dir, "r.png")
	args = append([]string{"resell", marked, "-o", resold, "--owner", "Bob",
		"--current-passkey", "pk123", "--new-passkey", "bobpk"}, ledgerFlags...)
	code, _, errOut = runCmd(t, args...)
	if code != 0 {
		t.Fatalf("resell exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Fatalf("expected a ledger warning, got %q", errOut)
	}
	if got := scanJSON(t, resold); got.Status != "watermarked" || got.Record == nil || got.Record.Owner != "Bob" {
		t.Fatalf("resale not written: %+v", got)
	}
}

func TestEmbed_LedgerFailureIsAWarning(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir, 48, 32)
	out := filepath.Join(dir, "m.png")
	// Nothing listens on this address; notarization fails but the image is
	// still written.
	code, _, errOut := runCmd(t, "embed", in, "-o", out, "--owner", "Alice", "--passkey", "pk123",
		"--backend", "grpc", "--grpc-target", "127.0.0.1:1", "--grpc-timeout", "2s")
	if code != 0 {
		t.Fatalf("embed exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Fatalf("expected a ledger warning, got %q", errOut)
	}
	if got := scanJSON(t, out); got.Status != "watermarked" {
		t.Fatalf("image not written: %+v", got)
	}
}
