// Package casconfig opens the notarization store named by the "ledger"
// section of a pxmark config file.
//
// A ledger may span several backends. With write_policy "first" (the
// default) a notarization document is written to the first backend and
// Lookup falls back through the rest in order. With "all" every document is
// written everywhere and each backend must report the same CID, so a receipt
// printed by embed or resell resolves on any of them.
//
//	"ledger": {
//	  "write_policy": "all",
//	  "backends": [
//	    {"name": "localfs", "config": {"localfs-dir": "/var/lib/pxmark/ledger"}},
//	    {"name": "grpc", "config": {"grpc-target": "ledger.internal:7440"}}
//	  ]
//	}
//
// Backend config keys are the backend's flag names without the leading
// dashes. Backends must be linked in, usually by blank import.
package casconfig

import (
	"errors"
	"fmt"

	"xdao.co/pxmark/storage"
	"xdao.co/pxmark/storage/casregistry"
)

// Write policies.
const (
	WriteFirst = "first"
	WriteAll   = "all"
)

type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend ("localfs", "grpc", "kubo").
	Name string `json:"name"`
	// ID tells two backends of the same kind apart in logs and replication
	// errors. Defaults to Name.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Empty reports whether no backend is configured, i.e. notarization is off.
func (c Config) Empty() bool { return len(c.Backends) == 0 }

func (c Config) Validate() error {
	if c.Empty() {
		return errors.New("casconfig: ledger needs at least one backend")
	}
	seen := make(map[string]bool, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("casconfig: backend name is required")
		}
		if seen[b.id()] {
			return fmt.Errorf("casconfig: duplicate backend id %q", b.id())
		}
		seen[b.id()] = true
	}
	switch c.WritePolicy {
	case "", WriteFirst, WriteAll:
		return nil
	}
	return fmt.Errorf("casconfig: invalid write_policy %q", c.WritePolicy)
}

// Open opens every backend and combines them per WritePolicy. The returned
// close func closes them in reverse order.
//
// A non-empty preferred (Name or ID) moves that backend to the front so it
// takes writes under WriteFirst.
func (c Config) Open(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	ordered, err := c.ordered(preferred)
	if err != nil {
		return nil, nil, err
	}

	var (
		named   []storage.NamedCAS
		closers closeStack
	)
	for _, b := range ordered {
		cas, closeFn, err := casregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closers.close()
			return nil, nil, fmt.Errorf("casconfig: open %s: %w", b.id(), err)
		}
		named = append(named, storage.NamedCAS{Name: b.id(), CAS: cas})
		closers.push(closeFn)
	}

	switch {
	case len(named) == 1:
		return named[0].CAS, closers.close, nil
	case c.WritePolicy == WriteAll:
		return storage.ReplicatingCAS{Backends: named}, closers.close, nil
	}
	multi := storage.MultiCAS{Adapters: make([]storage.CAS, 0, len(named))}
	for _, n := range named {
		multi.Adapters = append(multi.Adapters, n.CAS)
	}
	return multi, closers.close, nil
}

func (c Config) ordered(preferred string) ([]BackendConfig, error) {
	out := append([]BackendConfig(nil), c.Backends...)
	if preferred == "" {
		return out, nil
	}
	for i, b := range out {
		if b.Name == preferred || b.ID == preferred {
			copy(out[1:i+1], out[:i])
			out[0] = b
			return out, nil
		}
	}
	return nil, fmt.Errorf("casconfig: preferred backend %q not in ledger config", preferred)
}

type closeStack []func() error

func (s *closeStack) push(fn func() error) {
	if fn != nil {
		*s = append(*s, fn)
	}
}

// close runs every close func, last opened first, and returns the first error.
func (s closeStack) close() error {
	var first error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
