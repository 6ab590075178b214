package hook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/contract"
	"github.com/go-mason/mason/pkg/render"
)

func TestTopoOrderRespectsDependsOn(t *testing.T) {
	t.Parallel()

	deps := []Dependency{
		{Name: "c", DependsOn: []string{"a", "b"}},
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
	}

	ordered, err := TopoOrder(deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ordered) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ordered))
	}

	index := make(map[string]int, len(ordered))
	for i, d := range ordered {
		index[d.Name] = i
	}
	if index["a"] > index["b"] {
		t.Errorf("expected a before b, got order %v", ordered)
	}
	if index["a"] > index["c"] || index["b"] > index["c"] {
		t.Errorf("expected a and b before c, got order %v", ordered)
	}
}

func TestTopoOrderRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := TopoOrder([]Dependency{{Name: "a", DependsOn: []string{"missing"}}})
	if err == nil {
		t.Fatal("expected error for unknown depends_on reference")
	}
}

type recordingRunner struct {
	calls [][]string
	run   func(cmd string, args []string, cwd string) (contract.ProcessResult, error)
}

func (r *recordingRunner) Run(_ context.Context, cmd string, args []string, cwd string, _ []string) (contract.ProcessResult, error) {
	r.calls = append(r.calls, append([]string{cmd}, args...))
	if r.run != nil {
		return r.run(cmd, args, cwd)
	}
	return contract.ProcessResult{ExitCode: 0}, nil
}

func TestProvisionerInstallsOnceForSameManifest(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	runner := &recordingRunner{}
	p := NewProvisioner(fs, "/tmp/.mason", runner, nil)

	manifest := []byte("- name: pkg\n  install: [\"echo\", \"installing\"]\n")

	dir1, err := p.EnsureInstalled(context.Background(), manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dir2, err := p.EnsureInstalled(context.Background(), manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir1 != dir2 {
		t.Errorf("expected the same install dir for the same manifest, got %q vs %q", dir1, dir2)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected exactly one install invocation, got %d", len(runner.calls))
	}
}

func TestRunnerRejectsHookMissingRunEntrypoint(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	r := New(fs, &recordingRunner{}, render.New(nil), "/tmp/hookwork", nil)

	_, err := r.Run(context.Background(), &brick.HookFile{RelPath: "pre_gen.sh", Bytes: []byte("echo no entrypoint here")}, nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if be, ok := err.(*brick.Error); !ok || be.Kind != brick.KindHookMissingRun {
		t.Errorf("expected KindHookMissingRun, got %v", err)
	}
}

func TestRunnerAppliesLastMessageFrameAsAuthoritative(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	runner := &recordingRunner{
		run: func(_ string, _ []string, _ string) (contract.ProcessResult, error) {
			frames := []frame{
				{Type: "message", Vars: map[string]any{"extra": "first"}},
				{Type: "message", Vars: map[string]any{"extra": "second"}},
				{Type: "exit"},
			}
			var out []byte
			for _, f := range frames {
				line, _ := json.Marshal(f)
				out = append(out, line...)
				out = append(out, '\n')
			}
			return contract.ProcessResult{ExitCode: 0, Stdout: out}, nil
		},
	}

	r := New(fs, runner, render.New(nil), "/tmp/hookwork", nil)
	result, err := r.Run(context.Background(), &brick.HookFile{RelPath: "pre_gen.sh", Bytes: []byte("void run(context) {}")}, nil, map[string]any{"name": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["extra"] != "second" {
		t.Errorf("expected last message frame to win, got %v", result["extra"])
	}
}

func TestRunnerSurfacesHookErrorAfterExit(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	runner := &recordingRunner{
		run: func(_ string, _ []string, _ string) (contract.ProcessResult, error) {
			frames := []frame{
				{Type: "error", Message: "boom"},
				{Type: "exit"},
			}
			var out []byte
			for _, f := range frames {
				line, _ := json.Marshal(f)
				out = append(out, line...)
				out = append(out, '\n')
			}
			return contract.ProcessResult{ExitCode: 0, Stdout: out}, nil
		},
	}

	r := New(fs, runner, render.New(nil), "/tmp/hookwork", nil)
	_, err := r.Run(context.Background(), &brick.HookFile{RelPath: "pre_gen.sh", Bytes: []byte("void run(context) {}")}, nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if be, ok := err.(*brick.Error); !ok || be.Kind != brick.KindHookExecutionException {
		t.Errorf("expected KindHookExecutionException, got %v", err)
	}
}
