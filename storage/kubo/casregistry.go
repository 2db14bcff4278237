package kubo

import (
	"github.com/spf13/pflag"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
)

var (
	flagBin  string
	flagRepo string
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "kubo",
		Description: "Local IPFS repo via the Kubo ipfs command",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagBin, "kubo-bin", "ipfs", "ipfs binary (for --backend=kubo)")
			fs.StringVar(&flagRepo, "kubo-repo", "", "IPFS repo path, sets IPFS_PATH (for --backend=kubo)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return New(Options{Bin: flagBin, Repo: flagRepo}), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			return New(Options{Bin: cfg["kubo-bin"], Repo: cfg["kubo-repo"]}), nil, nil
		},
	})
}
