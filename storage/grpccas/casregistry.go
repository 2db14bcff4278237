package grpccas

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
)

const defaultDialTimeout = 5 * time.Second

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC ledger client (talks to pxmark-ledgerd)",
		Usage:       casregistry.UsageCLI,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "ledger daemon host:port (for --backend=grpc)")
			fs.DurationVar(&flagDialTimeout, "grpc-dial-timeout", defaultDialTimeout, "dial timeout (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 0, "per-RPC timeout (for --backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", 0, "max gRPC message size in bytes; 0 uses grpc defaults")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagTarget, flagDialTimeout, flagTimeout, flagMaxMsgBytes)
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			dialTimeout, err := durationKey(cfg, "grpc-dial-timeout", defaultDialTimeout)
			if err != nil {
				return nil, nil, err
			}
			timeout, err := durationKey(cfg, "grpc-timeout", 0)
			if err != nil {
				return nil, nil, err
			}
			maxMsg := 0
			if v := cfg["grpc-max-msg-bytes"]; v != "" {
				if maxMsg, err = strconv.Atoi(v); err != nil {
					return nil, nil, fmt.Errorf("grpc: grpc-max-msg-bytes: %w", err)
				}
			}
			return open(cfg["grpc-target"], dialTimeout, timeout, maxMsg)
		},
	})
}

func open(target string, dialTimeout, timeout time.Duration, maxMsg int) (storage.CAS, func() error, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, nil, fmt.Errorf("grpc: missing grpc-target")
	}
	client, err := Dial(context.Background(), target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsg})
	if err != nil {
		return nil, nil, err
	}
	client.Timeout = timeout
	return client, client.Close, nil
}

func durationKey(cfg map[string]string, key string, def time.Duration) (time.Duration, error) {
	v := cfg[key]
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("grpc: %s: %w", key, err)
	}
	return d, nil
}
