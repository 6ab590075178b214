package hook

import (
	"context"
	"crypto/sha1" //nolint:gosec // content-addressing, not a security boundary (spec.md §4.5)
	"encoding/hex"
	"fmt"
	"path"
	"sync"

	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/contract"
)

const installedMarker = ".installed"

// Provisioner ensures a hook's dependency manifest is installed exactly
// once per manifest hash under a shared install root (spec.md §4.5:
// "first caller wins; subsequent callers observe the installed state").
type Provisioner struct {
	FS      afero.Fs
	Logger  logger.Logger
	Process contract.ProcessRunner
	Root    string // e.g. <tmp>/.mason

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProvisioner builds a Provisioner rooted at root. A nil Logger
// defaults to discard.
func NewProvisioner(fs afero.Fs, root string, process contract.ProcessRunner, log logger.Logger) *Provisioner {
	if log == nil {
		log = discard.New()
	}
	return &Provisioner{
		FS:      fs,
		Logger:  log,
		Process: process,
		Root:    root,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (p *Provisioner) lockFor(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	return l
}

// EnsureInstalled installs manifest's dependencies (in topological
// order) under <Root>/<sha1(manifest)>/ unless that directory already
// carries the installed marker, and returns the install directory.
func (p *Provisioner) EnsureInstalled(ctx context.Context, manifest []byte) (string, error) {
	sum := sha1.Sum(manifest) //nolint:gosec // content-addressing, not a security boundary
	key := hex.EncodeToString(sum[:])
	dir := path.Join(p.Root, key)

	lock := p.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	markerPath := path.Join(dir, installedMarker)
	if exists, _ := afero.Exists(p.FS, markerPath); exists {
		p.Logger.WithFields("dir", dir).Trace("Hook dependencies already installed")
		return dir, nil
	}

	deps, err := ParseManifest(manifest)
	if err != nil {
		return "", err
	}
	ordered, err := TopoOrder(deps)
	if err != nil {
		return "", err
	}

	if err := p.FS.MkdirAll(dir, 0o755); err != nil {
		return "", brick.Wrap(brick.KindHookDependencyInstallFail, "failed to create install dir", err)
	}

	for _, dep := range ordered {
		if len(dep.Install) == 0 {
			continue
		}
		p.Logger.WithFields("dependency", dep.Name, "dir", dir).Debug("Installing hook dependency")
		result, err := p.Process.Run(ctx, dep.Install[0], dep.Install[1:], dir, nil)
		if err != nil {
			return "", &brick.Error{
				Kind:    brick.KindHookDependencyInstallFail,
				Message: fmt.Sprintf("failed to install dependency %q", dep.Name),
				Cause:   err,
			}
		}
		if result.ExitCode != 0 {
			return "", &brick.Error{
				Kind:    brick.KindHookDependencyInstallFail,
				Message: fmt.Sprintf("dependency %q install exited %d", dep.Name, result.ExitCode),
				Cause:   fmt.Errorf("%s", string(result.Stderr)),
			}
		}
	}

	if err := afero.WriteFile(p.FS, markerPath, []byte("ok"), 0o644); err != nil {
		return "", brick.Wrap(brick.KindHookDependencyInstallFail, "failed to write install marker", err)
	}
	return dir, nil
}
