package loader

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/bundle"
)

func writeBrickFixture(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()

	metaYAML := `
name: my_brick
description: a test brick
version: 0.1.0
vars:
  name:
    type: string
    prompt: "What's the name?"
  use_tests:
    type: boolean
    default: true
`
	if err := afero.WriteFile(fs, dir+"/brick.yaml", []byte(metaYAML), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := afero.WriteFile(fs, dir+"/__brick__/lib/{{name}}.dart", []byte("class {{name.pascalCase()}} {}"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := afero.WriteFile(fs, dir+"/hooks/pre_gen.dart", []byte("void run(ctx) {}"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func TestLoadFromDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeBrickFixture(t, fs, "/brick")

	l := New(fs, nil)
	b, err := l.LoadFromDir("/brick")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Name != "my_brick" {
		t.Errorf("expected name my_brick, got %q", b.Name)
	}
	if len(b.TemplateFiles) != 1 {
		t.Fatalf("expected 1 template file, got %d", len(b.TemplateFiles))
	}
	if b.TemplateFiles[0].RelPath != "lib/{{name}}.dart" {
		t.Errorf("unexpected rel path %q", b.TemplateFiles[0].RelPath)
	}
	if b.Hooks.PreGen == nil {
		t.Fatal("expected pre_gen hook to be loaded")
	}
	if len(b.VariableNames) != 2 {
		t.Errorf("expected 2 declared variables, got %d", len(b.VariableNames))
	}
	if def, ok := b.Variables["use_tests"]; !ok || def.Type != brick.TypeBoolean {
		t.Errorf("expected use_tests to be boolean, got %+v", def)
	}
}

func TestLoadFromDirMissingMetadata(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	l := New(fs, nil)
	_, err := l.LoadFromDir("/empty")
	if err == nil {
		t.Fatal("expected error for missing brick.yaml")
	}
	var brickErr *brick.Error
	if as, ok := err.(*brick.Error); ok {
		brickErr = as
	}
	if brickErr == nil || brickErr.Kind != brick.KindBrickMissingMetadata {
		t.Errorf("expected KindBrickMissingMetadata, got %v", err)
	}
}

func TestLoadFromDirInvalidName(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/brick/brick.yaml", []byte("name: Not-Valid\n"), 0o644)
	_ = fs.MkdirAll("/brick/__brick__", 0o755)

	l := New(fs, nil)
	_, err := l.LoadFromDir("/brick")
	if err == nil {
		t.Fatal("expected error for invalid brick name")
	}
}

func TestLoadFromDirMissingTemplateRoot(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/brick/brick.yaml", []byte("name: my_brick\n"), 0o644)

	l := New(fs, nil)
	_, err := l.LoadFromDir("/brick")
	if err == nil {
		t.Fatal("expected error for missing __brick__ directory")
	}
}

func TestLoadFromBundleRoundTripsWithLoadFromDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeBrickFixture(t, fs, "/brick")

	l := New(fs, nil)
	fromDir, err := l.LoadFromDir("/brick")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := bundle.EncodeUniversal(fromDir)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	fromBundle, err := l.LoadFromBundle(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if fromDir.Name != fromBundle.Name {
		t.Errorf("name mismatch: %q vs %q", fromDir.Name, fromBundle.Name)
	}
	if len(fromDir.TemplateFiles) != len(fromBundle.TemplateFiles) {
		t.Errorf("template file count mismatch")
	}
}
