// Package config loads the pxmark configuration file.
//
// The file is JSONC (JSON with comments and trailing commas):
//
//	{
//	  "log_level": "info",
//	  "require_passkey": true,
//	  "compliance": "strict",
//	  "ledger": {
//	    "write_policy": "first",
//	    "backends": [{"name": "localfs", "config": {"localfs-dir": "/var/lib/pxmark/ledger"}}],
//	    "hash_alg": "sha256",
//	    "signer": {"key": "gallery", "algorithm": "ed25519"}
//	  }
//	}
//
// Missing fields keep their defaults. Unknown fields are rejected.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"xdao.co/pxmark/compliance"
	"xdao.co/pxmark/internal/logging"
	"xdao.co/pxmark/keys"
	"xdao.co/pxmark/ledger"
	"xdao.co/pxmark/storage/casconfig"
)

type Config struct {
	LogLevel       string `json:"log_level"`
	RequirePasskey bool   `json:"require_passkey"`
	Compliance     string `json:"compliance"`
	Ledger         Ledger `json:"ledger"`
}

// Ledger selects where notarizations go. No backends means no ledger.
type Ledger struct {
	casconfig.Config
	HashAlg string  `json:"hash_alg"`
	Signer  *Signer `json:"signer,omitempty"`
}

// Signer names a key in the key store. An empty KeyDir means the default
// key store directory.
type Signer struct {
	KeyDir    string `json:"key_dir,omitempty"`
	Key       string `json:"key"`
	Algorithm string `json:"algorithm"`
}

func Default() Config {
	return Config{
		LogLevel:       "warn",
		RequirePasskey: true,
		Compliance:     compliance.Permissive.String(),
		Ledger:         Ledger{HashAlg: ledger.HashSHA256},
	}
}

// Parse decodes JSONC data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Ledger.Signer != nil && cfg.Ledger.Signer.Algorithm == "" {
		cfg.Ledger.Signer.Algorithm = keys.AlgEd25519
	}
	return cfg, cfg.Validate()
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := logging.Level(c.LogLevel); err != nil {
		return err
	}
	if _, err := compliance.Parse(c.Compliance); err != nil {
		return err
	}
	if err := ledger.CheckHashAlg(c.Ledger.HashAlg); err != nil {
		return err
	}
	if !c.Ledger.Empty() {
		if err := c.Ledger.Config.Validate(); err != nil {
			return err
		}
	}
	if s := c.Ledger.Signer; s != nil {
		if err := keys.CheckKeyName(s.Key); err != nil {
			return fmt.Errorf("ledger signer: %w", err)
		}
		switch s.Algorithm {
		case keys.AlgEd25519, keys.AlgDilithium3:
		default:
			return fmt.Errorf("ledger signer: unsupported algorithm %q", s.Algorithm)
		}
	}
	return nil
}

// Mode returns the parsed compliance mode. Call after Validate.
func (c Config) Mode() compliance.Mode {
	m, _ := compliance.Parse(c.Compliance)
	return m
}
