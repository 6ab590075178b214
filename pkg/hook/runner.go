// Package hook executes a brick's pre/post-generation scripts
// out-of-process and multiplexes their bidirectional IPC (spec.md
// §4.5): dependency provisioning, a static entrypoint check, and a
// worker whose stdout carries line-delimited JSON frames for
// `message`, `error` and `exit`.
package hook

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"
	"unicode/utf8"

	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/gookit/color"
	"github.com/pborman/indent"
	"github.com/rs/xid"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/contract"
	"github.com/go-mason/mason/pkg/render"
)

// entrypointPattern is deliberately permissive (spec.md's REDESIGN
// FLAGS note: "treat 'hook exposes a run entrypoint taking a single
// context parameter' as the canonical rule; a stricter parse is
// acceptable"), matching `run(<anything>)` however it is declared.
var entrypointPattern = regexp.MustCompile(`\brun\s*\([^)]*\)`)

// frame is one line of the worker's stdout protocol.
type frame struct {
	Type    string         `json:"type"` // "message", "error", "exit"
	Vars    map[string]any `json:"vars,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Runner executes hook scripts. A nil Provisioner means bricks without
// a dependency manifest are the only ones supported.
type Runner struct {
	FS          afero.Fs
	Logger      logger.Logger
	Renderer    *render.Renderer
	Process     contract.ProcessRunner
	Provisioner *Provisioner
	WorkDir     string // scratch dir for rendered scripts, e.g. <tmp>/.mason/scripts
}

// New builds a Runner. A nil Logger defaults to discard.
func New(fs afero.Fs, process contract.ProcessRunner, renderer *render.Renderer, workDir string, log logger.Logger) *Runner {
	if log == nil {
		log = discard.New()
	}
	return &Runner{FS: fs, Logger: log, Renderer: renderer, Process: process, WorkDir: workDir}
}

// Run renders hookFile, validates it, provisions manifest's
// dependencies if present, spawns the worker, and returns the
// authoritative post-hook vars map (spec.md §4.5 steps 1-5).
func (r *Runner) Run(ctx context.Context, hookFile *brick.HookFile, manifest []byte, vars map[string]any) (map[string]any, error) {
	rendered, err := r.Renderer.RenderBytes(hookFile.Bytes, vars)
	if err != nil {
		return nil, err
	}

	if !entrypointPattern.Match(rendered) {
		return nil, brick.New(brick.KindHookMissingRun, fmt.Sprintf("hook %s does not expose a run(context) entrypoint", hookFile.RelPath))
	}
	if err := checkASCIIShebangLine(rendered); err != nil {
		return nil, &brick.Error{Kind: brick.KindHookInvalidCharacters, Message: err.Error(), Path: hookFile.RelPath}
	}

	// each invocation gets its own scratch subdir (xid-named, following
	// the same per-run uniqueness pattern the teacher's masonry package
	// uses for plan/work directories) so concurrent hook runs for the
	// same brick never race on the same script path.
	runDir := path.Join(r.WorkDir, xid.New().String())
	scriptPath := path.Join(runDir, path.Base(hookFile.RelPath))
	if err := r.FS.MkdirAll(runDir, 0o755); err != nil {
		return nil, brick.Wrap(brick.KindHookRunException, "failed to create hook scratch dir", err)
	}

	cwd := runDir
	if manifest != nil {
		if r.Provisioner == nil {
			return nil, brick.New(brick.KindHookDependencyInstallFail, "brick declares a dependency manifest but no provisioner is configured")
		}
		installDir, err := r.Provisioner.EnsureInstalled(ctx, manifest)
		if err != nil {
			return nil, err
		}
		cwd = installDir
	}
	if err := afero.WriteFile(r.FS, scriptPath, rendered, 0o755); err != nil {
		return nil, brick.Wrap(brick.KindHookRunException, "failed to write rendered hook script", err)
	}

	initialVars, err := json.Marshal(vars)
	if err != nil {
		return nil, brick.Wrap(brick.KindHookRunException, "failed to encode initial vars", err)
	}

	result, err := r.Process.Run(ctx, scriptPath, []string{string(initialVars)}, cwd, os.Environ())
	if err != nil {
		return nil, &brick.Error{Kind: brick.KindHookRunException, Message: "failed to spawn hook worker", Path: hookFile.RelPath, Cause: err}
	}

	if len(result.Stdout) > 0 {
		r.Logger.Trace(color.Note.Sprint(indent.String("  ", string(result.Stdout))))
	}

	finalVars, hookErr := parseFrames(result.Stdout, vars)
	if hookErr != nil {
		return nil, &brick.Error{Kind: brick.KindHookExecutionException, Message: hookErr.Error(), Path: hookFile.RelPath}
	}
	if result.ExitCode != 0 {
		return nil, &brick.Error{
			Kind:    brick.KindHookExecutionException,
			Message: fmt.Sprintf("hook exited %d", result.ExitCode),
			Path:    hookFile.RelPath,
			Cause:   fmt.Errorf("%s", string(result.Stderr)),
		}
	}
	return finalVars, nil
}

// parseFrames replays the worker's message/error/exit protocol in
// receive order: every `message` frame's vars become the new
// authoritative map (spec.md §4.5 step 4, "the last received payload
// is authoritative"); an `error` frame is remembered but not raised
// until `exit` is observed, so the worker is never treated as
// orphaned mid-stream.
func parseFrames(stdout []byte, initial map[string]any) (map[string]any, error) {
	vars := initial
	var hookErr error

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			continue // non-protocol stdout (e.g. a print) is ignored, not fatal
		}
		switch f.Type {
		case "message":
			if f.Vars != nil {
				vars = f.Vars
			}
		case "error":
			hookErr = fmt.Errorf("%s", f.Message)
		case "exit":
			return vars, hookErr
		}
	}
	return vars, hookErr
}

// checkASCIIShebangLine rejects non-ASCII bytes on the shebang line,
// the one position most toolchains parse before handing the rest of
// the source to their own (often UTF-8-tolerant) lexer.
func checkASCIIShebangLine(source []byte) error {
	nl := bytes.IndexByte(source, '\n')
	line := source
	if nl >= 0 {
		line = source[:nl]
	}
	if len(line) > 0 && line[0] == '#' && !utf8ASCII(line) {
		return fmt.Errorf("hook shebang line contains non-ASCII bytes")
	}
	return nil
}

func utf8ASCII(b []byte) bool {
	for _, r := range string(b) {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
