package index

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/tddocs/internal/errors"
)

// FileName is the index file written under the search index directory.
const FileName = "index.json"

// file is the persisted layout.
type file struct {
	Version     int              `json:"version"`
	Fingerprint string           `json:"fingerprint"`
	BuildID     string           `json:"build_id"`
	Created     string           `json:"created"`
	Documents   []Document       `json:"documents"`
	Postings    map[string][]int `json:"postings"`
}

// Save writes idx to <dir>/index.json atomically, tagged with fingerprint.
// The write goes to a temporary file in the same directory which is then
// renamed, so readers never observe a partially-written index.
func Save(dir string, idx *Index, fingerprint string) error {
	if idx == nil {
		return errors.NewInvalidRequest("cannot save a nil index")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIO("create index dir", err)
	}

	f, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return errors.NewIO("create temp index file", err)
	}
	tmp := f.Name()

	enc := json.NewEncoder(f)
	if err := enc.Encode(file{
		Version:     FormatVersion,
		Fingerprint: fingerprint,
		BuildID:     idx.BuildID,
		Created:     time.Now().UTC().Format(time.RFC3339),
		Documents:   idx.docs,
		Postings:    idx.postings,
	}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.NewIO("encode index", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.NewIO("sync index", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.NewIO("close index", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, FileName)); err != nil {
		_ = os.Remove(tmp)
		return errors.NewIO("rename index", err)
	}
	return nil
}

// Load reads <dir>/index.json. It returns an ErrCacheInvalid error when the
// file is missing, was written by another format version, carries a
// different fingerprint, or references documents that do not exist.
func Load(dir, fingerprint string) (*Index, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewCacheInvalid("no cached index at " + path)
		}
		return nil, errors.NewIO("read index", err)
	}

	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.NewCacheInvalid(fmt.Sprintf("invalid index JSON %s: %v", path, err))
	}
	if f.Version != FormatVersion {
		return nil, errors.NewCacheInvalid(fmt.Sprintf("index format version %d, want %d", f.Version, FormatVersion))
	}
	if f.Fingerprint != fingerprint {
		return nil, errors.NewCacheInvalid("index fingerprint mismatch")
	}
	for token, ids := range f.Postings {
		for _, id := range ids {
			if id < 0 || id >= len(f.Documents) {
				return nil, errors.NewCacheInvalid(fmt.Sprintf("token %q references missing document %d", token, id))
			}
		}
	}
	if f.Postings == nil {
		f.Postings = map[string][]int{}
	}

	return &Index{
		BuildID:  f.BuildID,
		docs:     f.Documents,
		postings: f.Postings,
	}, nil
}

// Refs returns every indexed record reference in insertion order.
func (idx *Index) Refs() []Ref {
	if idx == nil {
		return nil
	}
	out := make([]Ref, len(idx.docs))
	for i, d := range idx.docs {
		out[i] = d.Ref
	}
	return out
}
