// Command pxmark-ledgerd serves a ledger store over gRPC so that several
// pxmark installations can notarize into one place.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/pxmark/internal/config"
	"xdao.co/pxmark/internal/logging"
	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
	"xdao.co/pxmark/storage/grpccas"

	_ "xdao.co/pxmark/storage/kubo"
	_ "xdao.co/pxmark/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("pxmark-ledgerd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "", "ledger backend name (default: config file, else localfs)")
	configPath := fs.String("config", "", "configuration file (JSONC); its ledger section selects backends")
	logLevel := fs.String("log-level", "", "log level (overrides config)")
	listBackends := fs.Bool("list-backends", false, "list supported backends and exit")
	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logs, err := logging.NewBackend(errOut, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	log := logs.Logger(logging.TagDaemon)

	var (
		cas     storage.CAS
		closeFn func() error
	)
	switch {
	case *backend == "" && !cfg.Ledger.Empty():
		cas, closeFn, err = cfg.Ledger.Open(casregistry.UsageDaemon, "")
	case *backend == "":
		cas, closeFn, err = casregistry.Open("localfs", casregistry.UsageDaemon)
	default:
		cas, closeFn, err = casregistry.Open(*backend, casregistry.UsageDaemon)
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(errOut, "pxmark-ledgerd listening on %s\n", lis.Addr())
	if err := serve(ctx, lis, cas, log); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

// serve runs the ledger service on lis until ctx is done, then drains
// in-flight calls.
func serve(ctx context.Context, lis net.Listener, cas storage.CAS, log slog.Logger) error {
	s := grpc.NewServer()
	grpccas.RegisterDocumentStore(s, &grpccas.Server{CAS: cas, Log: log})

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(lis) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Infof("Shutting down")
		s.GracefulStop()
		<-errc
		return nil
	}
}
