// Package keys holds the signing keys used to notarize ownership records.
//
// A key is a 32-byte seed stored as hex under a directory, one file per key
// name. The same seed signs with ed25519 directly or with dilithium3 through
// a derived seed, so one key name serves both algorithms.
package keys
