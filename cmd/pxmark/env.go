package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/slog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/internal/config"
	"xdao.co/pxmark/internal/imageio"
	"xdao.co/pxmark/internal/logging"
	"xdao.co/pxmark/keys"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/model"
	"xdao.co/pxmark/ownership"
	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
)

// commonFlags are accepted by every subcommand that touches images or the
// ledger.
type commonFlags struct {
	configPath string
	logLevel   string
	jsonOut    bool
	mode       string
	backend    string
	keyDir     string
	signer     string
	signerAlg  string
}

func newFlagSet(name string, errOut io.Writer) (*pflag.FlagSet, *commonFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "configuration file (JSONC)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level (overrides config)")
	fs.BoolVar(&c.jsonOut, "json", false, "print JSON results")
	fs.StringVar(&c.mode, "mode", "", "watermark parsing: permissive|strict (overrides config)")
	fs.StringVar(&c.backend, "backend", "", "ledger backend: "+strings.Join(casregistry.Names(casregistry.UsageCLI), ", "))
	fs.StringVar(&c.keyDir, "key-dir", "", "key store directory (default ~/.pxmark/keys)")
	fs.StringVar(&c.signer, "signer", "", "key name used to sign ledger entries")
	fs.StringVar(&c.signerAlg, "signer-alg", "", "ledger signature algorithm: ed25519|dilithium3")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
	return fs, c
}

// parse returns -1 when parsing succeeded, or the exit code to return.
func parse(fs *pflag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	return -1
}

// env is the resolved configuration for one command.
type env struct {
	cfg     config.Config
	flags   *commonFlags
	logs    *logging.Backend
	log     slog.Logger
	out     io.Writer
	errOut  io.Writer
	closers []func() error
}

func loadEnv(c *commonFlags, out, errOut io.Writer) (*env, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.mode != "" {
		cfg.Compliance = c.mode
	}
	if c.signer != "" {
		s := config.Signer{Key: c.signer, Algorithm: keys.AlgEd25519}
		if cfg.Ledger.Signer != nil {
			s.KeyDir = cfg.Ledger.Signer.KeyDir
			s.Algorithm = cfg.Ledger.Signer.Algorithm
		}
		cfg.Ledger.Signer = &s
	}
	if c.signerAlg != "" && cfg.Ledger.Signer != nil {
		cfg.Ledger.Signer.Algorithm = c.signerAlg
	}
	if c.keyDir != "" && cfg.Ledger.Signer != nil {
		cfg.Ledger.Signer.KeyDir = c.keyDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logs, err := logging.NewBackend(errOut, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		flags:  c,
		logs:   logs,
		log:    logs.Logger(logging.TagWorkflow),
		out:    out,
		errOut: errOut,
	}, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warnf("close: %v", err)
		}
	}
}

func (e *env) mode() compliance.Mode { return e.cfg.Mode() }

// openStore returns the ledger store, or nil when none is configured.
func (e *env) openStore() (storage.CAS, error) {
	var (
		cas     storage.CAS
		closeFn func() error
		err     error
	)
	switch {
	case e.flags.backend != "":
		cas, closeFn, err = casregistry.Open(e.flags.backend, casregistry.UsageCLI)
	case !e.cfg.Ledger.Empty():
		cas, closeFn, err = e.cfg.Ledger.Open(casregistry.UsageCLI, "")
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if closeFn != nil {
		e.closers = append(e.closers, closeFn)
	}
	return cas, nil
}

func (e *env) openLedger() (*ledger.CASLedger, error) {
	cas, err := e.openStore()
	if err != nil || cas == nil {
		return nil, err
	}
	opts := []ledger.Option{
		ledger.WithHashAlg(e.cfg.Ledger.HashAlg),
		ledger.WithLogger(e.logs.Logger(logging.TagLedger)),
	}
	if s := e.cfg.Ledger.Signer; s != nil {
		ks, err := keys.Open(s.KeyDir)
		if err != nil {
			return nil, err
		}
		signer, err := ks.Signer(s.Key, s.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("ledger signer %q: %w", s.Key, err)
		}
		opts = append(opts, ledger.WithSigner(signer))
	}
	return ledger.NewCASLedger(cas, opts...)
}

// workflow builds the write workflow. A ledger that cannot be opened does
// not block the write; every notarization then fails into Result.SinkErr.
func (e *env) workflow() *ownership.Workflow {
	opts := []ownership.Option{
		ownership.WithLogger(e.log),
		ownership.WithRequirePasskey(e.cfg.RequirePasskey),
		ownership.WithCompliance(e.mode()),
	}
	l, err := e.openLedger()
	switch {
	case err != nil:
		e.log.Warnf("Ledger unavailable: %v", err)
		opts = append(opts, ownership.WithSink(ledger.Unavailable(err)))
	case l != nil:
		opts = append(opts, ownership.WithSink(l))
	}
	return ownership.New(opts...)
}

// fail reports err and returns exit code 1.
func (e *env) fail(err error) int {
	if e.flags.jsonOut {
		_ = e.printJSON(map[string]*model.CodedError{"error": model.ErrorFrom(err)})
		return 1
	}
	var verrs ownership.ValidationErrors
	if errors.As(err, &verrs) {
		for _, v := range verrs {
			fmt.Fprintf(e.errOut, "error: %v\n", v)
		}
		return 1
	}
	fmt.Fprintf(e.errOut, "error: %v\n", err)
	return 1
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONTo(out, errOut io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

func readImage(path string) (imageio.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return imageio.Image{}, err
	}
	defer f.Close()
	img, _, err := imageio.Decode(f)
	if err != nil {
		return imageio.Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// writeImage writes img to path atomically.
func writeImage(path string, img imageio.Image) error {
	format, err := imageio.FormatFromPath(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pxmark-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := imageio.Encode(tmp, img, format); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// defaultOutput is <dir>/<name>_watermarked.png.
func defaultOutput(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(filepath.Dir(in), base+"_watermarked.png")
}

// secret returns the value of flag name, or prompts on the terminal when the
// flag was not given. Without a terminal the result is empty.
func secret(fs *pflag.FlagSet, name, prompt string, errOut io.Writer) (string, error) {
	if fs.Changed(name) {
		return fs.GetString(name)
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(errOut, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(errOut)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// newSecret reads a new passkey and its confirmation. A passkey given as a
// flag confirms itself unless the confirm flag is also set.
func newSecret(fs *pflag.FlagSet, name, confirmName, what string, errOut io.Writer) (string, string, error) {
	value, err := secret(fs, name, what+": ", errOut)
	if err != nil {
		return "", "", err
	}
	switch {
	case fs.Changed(confirmName):
		confirm, err := fs.GetString(confirmName)
		return value, confirm, err
	case fs.Changed(name) || value == "":
		return value, value, nil
	}
	confirm, err := secret(fs, confirmName, "Confirm "+strings.ToLower(what)+": ", errOut)
	return value, confirm, err
}
