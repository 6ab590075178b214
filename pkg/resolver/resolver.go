// Package resolver locates a brick by path, git reference or registry
// name and materializes it into a content-addressed on-disk cache
// (spec.md §4.3).
package resolver

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/contract"
	"github.com/go-mason/mason/pkg/loader"
)

const bricksSubdir = "bricks"

// Resolver resolves BrickRefs against an on-disk cache rooted at
// CacheRoot.
type Resolver struct {
	FS        afero.Fs
	Logger    logger.Logger
	Loader    *loader.Loader
	Process   contract.ProcessRunner
	Registry  contract.RegistryClient
	CacheRoot string

	// AllowNetwork gates Git and Registry refs (spec.md §6:
	// `allowNetwork=false` causes them to fail fast with NetworkDisabled).
	AllowNetwork bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex // in-memory semaphore keyed by cache key (spec.md §4.3 concurrency)

	// nowFn lets tests fake the clock for ClearCache; nil uses time.Now.
	nowFn func() time.Time
}

// New builds a Resolver. A nil Logger defaults to discard.
func New(fs afero.Fs, cacheRoot string, log logger.Logger) *Resolver {
	if log == nil {
		log = discard.New()
	}
	return &Resolver{
		FS:        fs,
		Logger:    log,
		Loader:    loader.New(fs, log),
		Process:   contract.NewExecProcessRunner(),
		CacheRoot: cacheRoot,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (r *Resolver) bricksRoot() string {
	return path.Join(r.CacheRoot, bricksSubdir)
}

func (r *Resolver) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// Resolve resolves ref to a fully-loaded ResolvedBrick, materializing
// its cache directory as needed.
func (r *Resolver) Resolve(ctx context.Context, ref brick.Ref) (*brick.ResolvedBrick, error) {
	switch ref.Kind {
	case brick.RefPath:
		return r.resolvePath(ref)
	case brick.RefGit:
		return r.resolveGit(ctx, ref)
	case brick.RefRegistry:
		return r.resolveRegistry(ctx, ref)
	default:
		return nil, fmt.Errorf("unknown brick ref kind %q", ref.Kind)
	}
}

func (r *Resolver) loadAndWrap(ref brick.Ref, cacheDir string) (*brick.ResolvedBrick, error) {
	b, err := r.Loader.LoadFromDir(cacheDir)
	if err != nil {
		return nil, err
	}
	return &brick.ResolvedBrick{
		Ref:               ref,
		CanonicalCacheDir: cacheDir,
		Brick:             b,
		ContentHash:       brick.ContentHash(b),
	}, nil
}
