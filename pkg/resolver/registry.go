package resolver

import (
	"context"
	"fmt"
	"path"

	"github.com/blang/semver/v4"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/bundle"
)

// resolveRegistry implements spec.md §4.3's Registry algorithm: resolve
// the version constraint, download the bundle if not already cached,
// decode it, and place it under the registry cache key `<name>_<version>`.
func (r *Resolver) resolveRegistry(ctx context.Context, ref brick.Ref) (*brick.ResolvedBrick, error) {
	if !r.AllowNetwork {
		return nil, brick.New(brick.KindNetworkDisabled, "registry resolution requires network access")
	}
	if r.Registry == nil {
		return nil, brick.New(brick.KindRegistryError, "no registry client configured")
	}

	if _, err := semver.ParseRange(normalizeConstraint(ref.VersionConstraint)); err != nil {
		return nil, brick.Wrap(brick.KindRegistryError,
			fmt.Sprintf("invalid version constraint %q", ref.VersionConstraint), err)
	}

	version, err := r.Registry.LatestVersion(ctx, ref.Name, ref.VersionConstraint)
	if err != nil {
		return nil, brick.Wrap(brick.KindRegistryError,
			fmt.Sprintf("failed to resolve %s@%s", ref.Name, ref.VersionConstraint), err)
	}
	if _, err := semver.Parse(version); err != nil {
		return nil, brick.Wrap(brick.KindRegistryError, fmt.Sprintf("registry returned invalid version %q", version), err)
	}

	key := fmt.Sprintf("%s_%s", ref.Name, version)
	cacheDir := path.Join(r.bricksRoot(), key)

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	exists, err := afero.DirExists(r.FS, cacheDir)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to stat cache dir", err)
	}
	if exists {
		r.Logger.WithFields("brick", ref.Name, "version", version).Trace("Registry brick already cached, skipping download")
		return r.loadAndWrap(ref, cacheDir)
	}

	data, err := r.Registry.Download(ctx, ref.Name, version)
	if err != nil {
		return nil, brick.Wrap(brick.KindRegistryError,
			fmt.Sprintf("failed to download %s@%s", ref.Name, version), err)
	}

	decoded, err := bundle.DecodeUniversal(data)
	if err != nil {
		return nil, err
	}

	if err := writeBrickTree(r.FS, cacheDir, decoded); err != nil {
		_ = r.FS.RemoveAll(cacheDir)
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to materialize registry brick", err)
	}

	return r.loadAndWrap(ref, cacheDir)
}

// normalizeConstraint rewrites the caret/tilde shorthand common to
// registry version constraints (e.g. "^0.1.0") to a plain lower bound
// (">=0.1.0") that blang/semver's stricter range grammar accepts, and an
// empty constraint to ">=0.0.0"; the
// RegistryClient collaborator is the one actually responsible for
// matching the constraint against its index (spec.md §6), so the
// resolver only needs enough of a parse to catch garbage input early.
func normalizeConstraint(constraint string) string {
	if constraint == "" {
		return ">=0.0.0"
	}
	switch constraint[0] {
	case '^', '~':
		return ">=" + constraint[1:]
	default:
		return constraint
	}
}
