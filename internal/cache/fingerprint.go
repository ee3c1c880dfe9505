// Package cache provides the helpers that decide whether persisted corpus
// and index caches are still valid: a source fingerprint and an exclusive
// writer lock.
//
// Conventions:
//   - The fingerprint covers every regular file under the given roots
//     (relative path, size, modification time), sorted by path.
//   - Missing roots contribute a marker instead of failing, so a source that
//     appears later still changes the fingerprint.
//   - Excluded directories (the cache output folders) are skipped wherever
//     they sit under a root.
//   - The writer lock lives at <processedPath>/.lock.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

// SchemaTag is mixed into every fingerprint; bump it when normalization
// changes so old caches are rebuilt.
const SchemaTag = "tddocs/v1"

// Fingerprint summarizes the state of every file under roots, skipping the
// directories listed in exclude.
func Fingerprint(roots []string, exclude ...string) (string, error) {
	skip := make(map[string]bool, len(exclude))
	for _, dir := range exclude {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("cannot resolve %s: %w", dir, err)
		}
		skip[abs] = true
	}

	h := xxhash.New()
	_, _ = h.WriteString(SchemaTag)

	for _, root := range roots {
		_, _ = h.WriteString("\x00root\x00" + filepath.ToSlash(root))
		entries, err := scan(root, skip)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			_, _ = h.WriteString("\x00" + e)
		}
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// scan returns "relpath|size|mtime" lines for every regular file under root.
func scan(root string, skip map[string]bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{"(missing)"}, nil
		}
		return nil, fmt.Errorf("cannot stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{describe(filepath.Base(root), info)}, nil
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root || len(skip) == 0 {
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if skip[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, describe(filepath.ToSlash(rel), fi))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

func describe(rel string, fi fs.FileInfo) string {
	return rel + "|" + strconv.FormatInt(fi.Size(), 10) + "|" + strconv.FormatInt(fi.ModTime().UnixNano(), 10)
}

// LockFileName is the writer lock file created in the processed directory.
const LockFileName = ".lock"

// lockRetryDelay is the pause between lock attempts.
const lockRetryDelay = 50 * time.Millisecond

// AcquireLock obtains the exclusive writer lock in dir, retrying until timeout
// or until ctx is done. The returned release function is always non-nil.
func AcquireLock(ctx context.Context, dir string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return func() {}, fmt.Errorf("cannot create lock dir %s: %w", dir, err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := flock.New(filepath.Join(dir, LockFileName))
	locked, err := l.TryLockContext(ctx, lockRetryDelay)
	if locked {
		return func() { _ = l.Unlock() }, nil
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return func() {}, fmt.Errorf("another process is writing the cache (lock: %s)", l.Path())
	}
	return func() {}, fmt.Errorf("cannot acquire cache lock: %w", err)
}
