// Package bundle moves ledger documents between stores as a TAR archive.
//
// An archive holds blocks/<cid> entries and an optional index.json. Archive
// bytes depend only on the exported blocks and labels: entries are sorted
// and headers carry no owner or time.
package bundle

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/pxmark/cidutil"
	"xdao.co/pxmark/storage"
)

// FormatVersion is the index.json schema version.
const FormatVersion = 1

const (
	blockPrefix = "blocks/"
	indexName   = "index.json"
)

var epoch = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Labels names blocks for humans; import ignores them.
	Labels map[string]cid.Cid
	// IncludeIndex adds index.json.
	IncludeIndex bool
}

// Export writes the blocks for ids to w. Every block is re-hashed against
// its CID before it is written.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) (err error) {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}
	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	blocks := make([]indexBlock, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, err := cas.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		got, err := cidutil.Sum(b)
		if err != nil {
			return err
		}
		if got != id {
			return storage.ErrCIDMismatch
		}
		if err := writeFile(tw, blockPrefix+s, b); err != nil {
			return err
		}
		blocks = append(blocks, indexBlock{CID: s, Size: len(b)})
	}

	if !opts.IncludeIndex {
		return nil
	}
	idx := index{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "sha2-256",
		Blocks:    blocks,
	}
	labels := make([]string, 0, len(opts.Labels))
	for k := range opts.Labels {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, k := range labels {
		if k == "" {
			return errors.New("bundle: empty label")
		}
		v := opts.Labels[k]
		if !v.Defined() {
			return storage.ErrInvalidCID
		}
		idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeFile(tw, indexName, append(b, '\n'))
}

type ImportOptions struct {
	// IgnoreUnknown skips entries other than blocks and the index instead of
	// failing.
	IgnoreUnknown bool
}

// Import stores every block in r into cas and returns their CIDs in archive
// order. Each block must hash to the CID in its entry name.
func Import(ctx context.Context, r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, errors.New("bundle: nil CAS")
	}
	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var out []cid.Cid

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unexpected entry type %v (%s)", h.Typeflag, name)
		}
		if name == indexName {
			continue
		}
		if !strings.HasPrefix(name, blockPrefix) {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unknown entry %s", name)
		}

		id, err := cid.Decode(strings.TrimPrefix(name, blockPrefix))
		if err != nil || !id.Defined() {
			return out, storage.ErrInvalidCID
		}
		if _, dup := seen[id.String()]; dup {
			return out, fmt.Errorf("bundle: duplicate block %s", id)
		}
		seen[id.String()] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return out, err
		}
		got, err := cidutil.Sum(payload)
		if err != nil {
			return out, err
		}
		if got != id {
			return out, storage.ErrCIDMismatch
		}
		if _, err := cas.Put(ctx, payload); err != nil {
			return out, fmt.Errorf("bundle: store %s: %w", id, err)
		}
		out = append(out, id)
	}
}

type index struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

// cleanPath normalizes an entry name and returns "" for anything that could
// escape the archive root.
func cleanPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
