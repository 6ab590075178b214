package resolver

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
)

// resolvePath implements spec.md §4.3's Path algorithm: hash the
// directory tree, then materialize into the cache if the hash isn't
// already present (re-resolution is then a no-op).
func (r *Resolver) resolvePath(ref brick.Ref) (*brick.ResolvedBrick, error) {
	entries, err := r.hashDirTree(ref.Dir)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to hash brick directory", err)
	}
	key := brick.HashEntries(entries)

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	cacheDir := path.Join(r.bricksRoot(), key)
	r.Logger.WithFields("dir", ref.Dir, "cacheDir", cacheDir).Debug("Resolving path brick")

	exists, err := afero.DirExists(r.FS, cacheDir)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to stat cache dir", err)
	}
	if !exists {
		if err := r.materialize(cacheDir, entries); err != nil {
			return nil, err
		}
	} else {
		r.Logger.WithFields("cacheDir", cacheDir).Trace("Cache hit, skipping materialization")
	}

	return r.loadAndWrap(ref, cacheDir)
}

// hashDirTree walks dir and returns its entries (relative path, bytes)
// in the shape brick.HashEntries expects.
func (r *Resolver) hashDirTree(dir string) ([]brick.HashEntry, error) {
	var entries []brick.HashEntry
	err := afero.Walk(r.FS, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(r.FS, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, dir), "/")
		entries = append(entries, brick.HashEntry{RelPath: rel, Bytes: data})
		return nil
	})
	return entries, err
}

// materialize copies entries (already read into memory by hashDirTree)
// into cacheDir, retrying once on transient I/O failure (spec.md §7:
// "Cache materialization is retried at most once on transient I/O
// failure").
func (r *Resolver) materialize(cacheDir string, entries []brick.HashEntry) error {
	write := func() error {
		for _, e := range entries {
			dst := path.Join(cacheDir, e.RelPath)
			if err := r.FS.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := afero.WriteFile(r.FS, dst, e.Bytes, 0o644); err != nil {
				return err
			}
		}
		return nil
	}

	err := write()
	if err != nil {
		r.Logger.WithFields("cacheDir", cacheDir, "error", err).Warn("Materialization failed, retrying once")
		_ = r.FS.RemoveAll(cacheDir)
		err = write()
	}
	if err != nil {
		_ = r.FS.RemoveAll(cacheDir)
		return brick.Wrap(brick.KindCacheWriteFailure, "failed to materialize cache directory "+cacheDir, err)
	}
	return nil
}
