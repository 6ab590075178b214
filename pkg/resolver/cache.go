package resolver

import (
	"path"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
)

// writeBrickTree serializes a decoded brick.Brick back out to disk in
// the same on-disk shape LoadFromDir expects (brick.yaml, __brick__/,
// hooks/), so a registry download can be reloaded symmetrically with a
// path or git brick. Only used by the registry path: path/git refs
// already have a directory tree and hash it directly instead.
func writeBrickTree(fsys afero.Fs, cacheDir string, b brick.Brick) error {
	meta := registryMetadataDoc{
		Name:        b.Name,
		Description: b.Description,
		Version:     b.Version,
		PublishTo:   b.PublishTo,
	}
	for _, name := range b.VariableNames {
		def := b.Variables[name]
		meta.Vars = append(meta.Vars, yaml.MapItem{Key: name, Value: map[string]any{
			"type":        string(def.Type),
			"description": def.Description,
			"default":     def.Default,
			"prompt":      def.Prompt,
			"values":      def.Values,
		}})
	}

	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	if err := writeFile(fsys, path.Join(cacheDir, "brick.yaml"), metaBytes); err != nil {
		return err
	}

	templateRoot := path.Join(cacheDir, "__brick__")
	for _, f := range b.TemplateFiles {
		if err := writeFile(fsys, path.Join(templateRoot, f.RelPath), f.Bytes); err != nil {
			return err
		}
	}
	if len(b.TemplateFiles) == 0 {
		if err := fsys.MkdirAll(templateRoot, 0o755); err != nil {
			return err
		}
	}

	hooksDir := path.Join(cacheDir, "hooks")
	if b.Hooks.PreGen != nil {
		if err := writeFile(fsys, path.Join(hooksDir, b.Hooks.PreGen.RelPath), b.Hooks.PreGen.Bytes); err != nil {
			return err
		}
	}
	if b.Hooks.PostGen != nil {
		if err := writeFile(fsys, path.Join(hooksDir, b.Hooks.PostGen.RelPath), b.Hooks.PostGen.Bytes); err != nil {
			return err
		}
	}
	if b.Hooks.Manifest != nil {
		if err := writeFile(fsys, path.Join(hooksDir, b.Hooks.ManifestPath), b.Hooks.Manifest); err != nil {
			return err
		}
	}

	return nil
}

// registryMetadataDoc mirrors loader.metadataDoc; kept private to this
// package rather than shared, since the two sides of the round trip
// (write here, read in loader.LoadFromDir) only need to agree on the
// brick.yaml wire shape, not on a common Go type.
type registryMetadataDoc struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Version     string        `yaml:"version"`
	PublishTo   string        `yaml:"publish_to"`
	Vars        yaml.MapSlice `yaml:"vars"`
}

func writeFile(fsys afero.Fs, dst string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, dst, data, 0o644)
}

// ClearCache removes cached brick directories under CacheRoot/bricks
// whose modification time is older than olderThan, returning the
// cache keys it removed. This is the supplemented cache-GC operation:
// spec.md describes the cache but never its eviction, so there is
// otherwise no way to reclaim space from a long-lived cache root.
func (r *Resolver) ClearCache(olderThan time.Duration) ([]string, error) {
	root := r.bricksRoot()

	exists, err := afero.DirExists(r.FS, root)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to stat cache root", err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(r.FS, root)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to list cache root", err)
	}

	cutoff := r.now().Add(-olderThan)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.ModTime().After(cutoff) {
			continue
		}

		key := entry.Name()
		lock := r.lockFor(key)
		lock.Lock()
		err := r.FS.RemoveAll(path.Join(root, key))
		lock.Unlock()
		if err != nil {
			return removed, brick.Wrap(brick.KindCacheWriteFailure, "failed to remove cache entry "+key, err)
		}
		removed = append(removed, key)
	}

	r.Logger.WithFields("removed", len(removed)).Info("Cleared brick cache")
	return removed, nil
}

// now is overridable by tests; defaults to the real wall clock.
var realNow = time.Now

func (r *Resolver) now() time.Time {
	if r.nowFn != nil {
		return r.nowFn()
	}
	return realNow()
}
