// Package mason is the facade the CLI (and any other embedder) drives:
// it wires the Resolver, Loader, Template Renderer, Hook Runner and
// Generator behind the single `generate` entry point spec.md's
// External Interfaces section (§6) describes.
package mason

import (
	"context"
	"time"

	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/contract"
	"github.com/go-mason/mason/pkg/generate"
	"github.com/go-mason/mason/pkg/hook"
	"github.com/go-mason/mason/pkg/loader"
	"github.com/go-mason/mason/pkg/render"
	"github.com/go-mason/mason/pkg/resolver"
)

// Config is the core's caller-supplied configuration (spec.md §6):
// never read from the environment.
type Config struct {
	CacheRoot       string
	CollisionPolicy brick.CollisionPolicy
	HookTimeout     time.Duration
	AllowNetwork    bool
}

// Mason wires every core component behind one Generate call.
type Mason struct {
	Config Config

	FS        afero.Fs
	Logger    logger.Logger
	Resolver  *resolver.Resolver
	Loader    *loader.Loader
	Renderer  *render.Renderer
	Generator *generate.Generator
}

// New builds a Mason instance. registry and process may be nil if the
// caller never resolves Git/Registry refs or dependency-bearing hooks.
func New(fs afero.Fs, cfg Config, registry contract.RegistryClient, process contract.ProcessRunner, log logger.Logger) *Mason {
	if log == nil {
		log = discard.New()
	}

	r := resolver.New(fs, cfg.CacheRoot, log)
	r.AllowNetwork = cfg.AllowNetwork
	r.Registry = registry
	if process != nil {
		r.Process = process
	}

	renderer := render.New(nil)
	provisioner := hook.NewProvisioner(fs, cfg.CacheRoot+"/hook-deps", r.Process, log)
	hookRunner := hook.New(fs, r.Process, renderer, cfg.CacheRoot+"/hook-work", log)
	hookRunner.Provisioner = provisioner

	generator := generate.New(fs, renderer, hookRunner, log)
	generator.HookTimeout = cfg.HookTimeout

	return &Mason{
		Config:    cfg,
		FS:        fs,
		Logger:    log,
		Resolver:  r,
		Loader:    r.Loader,
		Renderer:  renderer,
		Generator: generator,
	}
}

// Generate resolves ref, then renders it into targetDir against vars
// using the configured CollisionPolicy.
func (m *Mason) Generate(ctx context.Context, ref brick.Ref, targetDir string, vars map[string]any) (generate.GenerateReport, error) {
	resolved, err := m.Resolver.Resolve(ctx, ref)
	if err != nil {
		return generate.GenerateReport{}, err
	}
	m.Logger.WithFields("brick", resolved.Brick.Name, "contentHash", resolved.ContentHash).Info("Resolved brick")

	return m.Generator.Generate(ctx, resolved.Brick, targetDir, vars, m.Config.CollisionPolicy)
}

// ClearCache evicts cached brick directories older than olderThan.
func (m *Mason) ClearCache(olderThan time.Duration) ([]string, error) {
	return m.Resolver.ClearCache(olderThan)
}
