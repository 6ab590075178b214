package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/bundle"
	"github.com/go-mason/mason/pkg/contract"
)

func seedBrickFiles(fs afero.Fs, dir string) {
	_ = afero.WriteFile(fs, dir+"/brick.yaml", []byte("name: my_brick\nversion: 0.1.0\n"), 0o644)
	_ = afero.WriteFile(fs, dir+"/__brick__/README.md", []byte("hello"), 0o644)
}

func writeSourceBrick(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	seedBrickFiles(fs, dir)
}

func TestResolvePathCachesOnFirstResolve(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeSourceBrick(t, fs, "/src")

	r := New(fs, "/cache", nil)
	resolved, err := r.Resolve(context.Background(), brick.PathRef("/src"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Brick.Name != "my_brick" {
		t.Errorf("expected name my_brick, got %q", resolved.Brick.Name)
	}

	exists, err := afero.DirExists(fs, resolved.CanonicalCacheDir)
	if err != nil || !exists {
		t.Fatalf("expected cache directory to exist at %s", resolved.CanonicalCacheDir)
	}

	// Resolving again should hit the cache and produce the identical key.
	second, err := r.Resolve(context.Background(), brick.PathRef("/src"))
	if err != nil {
		t.Fatalf("unexpected error on second resolve: %v", err)
	}
	if second.CanonicalCacheDir != resolved.CanonicalCacheDir {
		t.Errorf("expected identical cache dir on re-resolution, got %q vs %q", resolved.CanonicalCacheDir, second.CanonicalCacheDir)
	}
}

func TestResolvePathContentHashStableAcrossIdenticalSources(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeSourceBrick(t, fs, "/a")
	writeSourceBrick(t, fs, "/b")

	r := New(fs, "/cache", nil)
	ra, err := r.Resolve(context.Background(), brick.PathRef("/a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, err := r.Resolve(context.Background(), brick.PathRef("/b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ra.ContentHash != rb.ContentHash {
		t.Errorf("expected identical content to produce the identical content hash")
	}
}

type fakeGitRunner struct {
	fs afero.Fs
}

func (f *fakeGitRunner) Run(_ context.Context, cmd string, args []string, _ string, _ []string) (contract.ProcessResult, error) {
	if cmd != "git" {
		return contract.ProcessResult{ExitCode: 1}, nil
	}
	dest := args[len(args)-1]
	seedBrickFiles(f.fs, dest)
	return contract.ProcessResult{ExitCode: 0}, nil
}

func TestResolveGitClonesIntoCache(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	r := New(fs, "/cache", nil)
	r.Process = &fakeGitRunner{fs: fs}
	r.AllowNetwork = true

	resolved, err := r.Resolve(context.Background(), brick.NewGitRef("https://example.com/bricks/my_brick.git", "main", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Brick.Name != "my_brick" {
		t.Errorf("expected name my_brick, got %q", resolved.Brick.Name)
	}
}

func TestResolveGitRejectsWhenNetworkDisabled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	r := New(fs, "/cache", nil)
	r.AllowNetwork = false

	_, err := r.Resolve(context.Background(), brick.NewGitRef("https://example.com/bricks/my_brick.git", "", ""))
	if err == nil {
		t.Fatal("expected error when network is disabled")
	}
	if be, ok := err.(*brick.Error); !ok || be.Kind != brick.KindNetworkDisabled {
		t.Errorf("expected KindNetworkDisabled, got %v", err)
	}
}

type fakeRegistry struct {
	fs      afero.Fs
	version string
	calls   int
}

func (f *fakeRegistry) LatestVersion(_ context.Context, _, _ string) (string, error) {
	return f.version, nil
}

func (f *fakeRegistry) Download(_ context.Context, name, version string) ([]byte, error) {
	f.calls++
	b := brick.Brick{
		Name:    name,
		Version: version,
		TemplateFiles: []brick.TemplateFile{
			{RelPath: "README.md", Bytes: []byte("hello from registry")},
		},
	}
	return bundle.EncodeUniversal(b)
}

func TestResolveRegistryDownloadsOnce(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	registry := &fakeRegistry{fs: fs, version: "1.2.3"}

	r := New(fs, "/cache", nil)
	r.AllowNetwork = true
	r.Registry = registry

	resolved, err := r.Resolve(context.Background(), brick.RegistryRef("my_brick", "^1.0.0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Brick.Name != "my_brick" {
		t.Errorf("expected name my_brick, got %q", resolved.Brick.Name)
	}
	if registry.calls != 1 {
		t.Fatalf("expected one download, got %d", registry.calls)
	}

	// second resolution with the cache already present must not download again.
	if _, err := r.Resolve(context.Background(), brick.RegistryRef("my_brick", "^1.0.0")); err != nil {
		t.Fatalf("unexpected error on second resolve: %v", err)
	}
	if registry.calls != 1 {
		t.Errorf("expected cached resolution to skip the download, got %d calls", registry.calls)
	}
}

func TestResolveRegistryRejectsWhenNetworkDisabled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	r := New(fs, "/cache", nil)
	r.Registry = &fakeRegistry{fs: fs, version: "1.0.0"}

	_, err := r.Resolve(context.Background(), brick.RegistryRef("my_brick", "^1.0.0"))
	if err == nil {
		t.Fatal("expected error when network is disabled")
	}
}

func TestClearCacheRemovesOnlyOldEntries(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeSourceBrick(t, fs, "/src")

	r := New(fs, "/cache", nil)
	if _, err := r.Resolve(context.Background(), brick.PathRef("/src")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.nowFn = func() time.Time { return time.Now().Add(48 * time.Hour) }
	removed, err := r.ClearCache(24 * time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected one cache entry removed, got %d", len(removed))
	}

	exists, _ := afero.DirExists(fs, r.bricksRoot())
	entries, _ := afero.ReadDir(fs, r.bricksRoot())
	if exists && len(entries) != 0 {
		t.Errorf("expected cache root to be empty after clearing, got %d entries", len(entries))
	}
}
