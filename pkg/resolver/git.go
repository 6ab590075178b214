package resolver

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
)

// resolveGit implements spec.md §4.3's Git algorithm: a shallow clone
// into a temp dir at the requested ref (default: remote HEAD), then
// descend to subPath if provided, then hash and cache like a path ref.
func (r *Resolver) resolveGit(ctx context.Context, ref brick.Ref) (*brick.ResolvedBrick, error) {
	if !r.AllowNetwork {
		return nil, brick.New(brick.KindNetworkDisabled, "git resolution requires network access")
	}

	tempDir, err := afero.TempDir(r.FS, "", "mason-git-")
	if err != nil {
		return nil, brick.Wrap(brick.KindGitFetchFailure, "failed to create temp dir", err)
	}
	defer r.FS.RemoveAll(tempDir) //nolint:errcheck // best-effort cleanup of the clone scratch dir

	args := []string{"clone", "--depth", "1"}
	if ref.GitRef != "" {
		args = append(args, "--branch", ref.GitRef)
	}
	args = append(args, ref.URL, tempDir)

	result, err := r.Process.Run(ctx, "git", args, "", nil)
	if err != nil {
		return nil, brick.Wrap(brick.KindGitFetchFailure,
			"failed to invoke git", err)
	}
	if result.ExitCode != 0 {
		return nil, &brick.Error{
			Kind:    brick.KindGitFetchFailure,
			Message: fmt.Sprintf("git clone failed (ref=%q)", ref.GitRef),
			Path:    ref.URL,
			Cause:   gitStderrError(result.Stderr),
		}
	}

	brickDir := tempDir
	if ref.SubPath != "" {
		brickDir = path.Join(tempDir, ref.SubPath)
	}

	entries, err := r.hashDirTree(brickDir)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to hash cloned brick", err)
	}
	key := brick.HashEntries(entries)

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	cacheDir := path.Join(r.bricksRoot(), key)
	exists, err := afero.DirExists(r.FS, cacheDir)
	if err != nil {
		return nil, brick.Wrap(brick.KindCacheWriteFailure, "failed to stat cache dir", err)
	}
	if !exists {
		if err := r.materialize(cacheDir, entries); err != nil {
			return nil, err
		}
	}

	return r.loadAndWrap(ref, cacheDir)
}

type gitError string

func (e gitError) Error() string { return string(e) }

func gitStderrError(stderr []byte) error {
	if len(stderr) == 0 {
		return gitError("git exited with a non-zero status")
	}
	return gitError(string(stderr))
}
