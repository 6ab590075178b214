// Package generate walks a brick's template tree, renders each file's
// path and content against a variable context, applies the collision
// policy, and orchestrates the pre/post-generation hook lifecycle
// (spec.md §4.4).
package generate

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/hook"
	"github.com/go-mason/mason/pkg/render"
)

// GenerateReport is the aggregate result of a Generate call.
type GenerateReport struct {
	Files []brick.GeneratedFile
}

// Generator renders a Brick into a target directory.
type Generator struct {
	FS       afero.Fs
	Logger   logger.Logger
	Renderer *render.Renderer
	Hooks    *hook.Runner

	// HookTimeout bounds each individual preGen/postGen hook invocation
	// (spec.md §6's `hookTimeout?` config field). Zero means no timeout.
	HookTimeout time.Duration
}

// New builds a Generator. A nil Logger defaults to discard.
func New(fs afero.Fs, renderer *render.Renderer, hookRunner *hook.Runner, log logger.Logger) *Generator {
	if log == nil {
		log = discard.New()
	}
	return &Generator{FS: fs, Logger: log, Renderer: renderer, Hooks: hookRunner}
}

// runHook invokes the Hook Runner under HookTimeout, if configured, so a
// hook that never emits an exit frame can't block generate forever.
func (g *Generator) runHook(ctx context.Context, hookFile *brick.HookFile, manifest []byte, vars map[string]any) (map[string]any, error) {
	if g.HookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.HookTimeout)
		defer cancel()
	}
	return g.Hooks.Run(ctx, hookFile, manifest, vars)
}

// Generate implements spec.md §4.4's algorithm end to end.
func (g *Generator) Generate(ctx context.Context, b brick.Brick, targetDir string, vars map[string]any, policy brick.CollisionPolicy) (GenerateReport, error) {
	resolved, err := validateAndCoerce(b, vars)
	if err != nil {
		return GenerateReport{}, err
	}

	if b.Hooks.PreGen != nil {
		g.Logger.WithFields("hook", b.Hooks.PreGen.RelPath).Debug("Running preGen hook")
		updated, err := g.runHook(ctx, b.Hooks.PreGen, b.Hooks.Manifest, resolved)
		if err != nil {
			return GenerateReport{}, err
		}
		resolved = updated
	}

	var files []brick.GeneratedFile
	resolvedConflicts := map[string]brick.OnConflict{}

	for _, tf := range b.TemplateFiles {
		renderedPath, err := g.Renderer.Render(tf.RelPath, resolved)
		if err != nil {
			return GenerateReport{}, err
		}
		if hasEmptySegment(renderedPath) {
			g.Logger.WithFields("path", tf.RelPath).Trace("Rendered path has an empty segment, skipping file")
			continue
		}

		content, err := g.Renderer.RenderBytes(tf.Bytes, resolved)
		if err != nil {
			return GenerateReport{}, err
		}

		absPath := path.Join(targetDir, renderedPath)
		generated, err := g.writeOne(absPath, content, policy, resolvedConflicts)
		if err != nil {
			return GenerateReport{}, err
		}
		files = append(files, generated)
	}

	if b.Hooks.PostGen != nil {
		g.Logger.WithFields("hook", b.Hooks.PostGen.RelPath).Debug("Running postGen hook")
		if _, err := g.runHook(ctx, b.Hooks.PostGen, b.Hooks.Manifest, resolved); err != nil {
			return GenerateReport{Files: files}, err
		}
	}

	return GenerateReport{Files: files}, nil
}

func (g *Generator) writeOne(absPath string, content []byte, policy brick.CollisionPolicy, resolvedConflicts map[string]brick.OnConflict) (brick.GeneratedFile, error) {
	normalizedPath := filepathToForwardSlash(absPath)

	exists, err := afero.Exists(g.FS, absPath)
	if err != nil {
		return brick.GeneratedFile{}, brick.Wrap(brick.KindFileWriteFailure, "failed to stat "+absPath, err)
	}

	if !exists {
		if err := g.writeFile(absPath, content); err != nil {
			return brick.GeneratedFile{}, err
		}
		return brick.GeneratedFile{AbsPath: normalizedPath, Disposition: brick.DispositionCreated, Bytes: content}, nil
	}

	existing, err := afero.ReadFile(g.FS, absPath)
	if err != nil {
		return brick.GeneratedFile{}, brick.Wrap(brick.KindFileWriteFailure, "failed to read existing "+absPath, err)
	}
	if string(existing) == string(content) {
		return brick.GeneratedFile{AbsPath: normalizedPath, Disposition: brick.DispositionIdentical, Bytes: content}, nil
	}

	onConflict := policy.OnConflict
	if cached, ok := resolvedConflicts[absPath]; ok {
		onConflict = cached
	} else if onConflict == brick.OnConflictPrompt {
		if policy.FileConflictResolver == nil {
			return brick.GeneratedFile{}, brick.New(brick.KindFileWriteFailure, "collision policy is prompt but no fileConflictResolver was supplied")
		}
		resolved, err := policy.FileConflictResolver(normalizedPath, existing, content)
		if err != nil {
			return brick.GeneratedFile{}, brick.Wrap(brick.KindFileWriteFailure, "fileConflictResolver failed for "+normalizedPath, err)
		}
		onConflict = resolved
		resolvedConflicts[absPath] = resolved
	}

	switch onConflict {
	case brick.OnConflictOverwrite:
		if err := g.writeFile(absPath, content); err != nil {
			return brick.GeneratedFile{}, err
		}
		return brick.GeneratedFile{AbsPath: normalizedPath, Disposition: brick.DispositionOverwritten, Bytes: content}, nil

	case brick.OnConflictAppend:
		merged := append(append([]byte{}, existing...), content...)
		if err := g.writeFile(absPath, merged); err != nil {
			return brick.GeneratedFile{}, err
		}
		return brick.GeneratedFile{AbsPath: normalizedPath, Disposition: brick.DispositionAppended, Bytes: merged}, nil

	case brick.OnConflictSkip:
		return brick.GeneratedFile{AbsPath: normalizedPath, Disposition: brick.DispositionSkipped, Bytes: existing}, nil

	default:
		return brick.GeneratedFile{}, brick.New(brick.KindFileWriteFailure, fmt.Sprintf("unresolved collision policy %q for %s", onConflict, normalizedPath))
	}
}

func (g *Generator) writeFile(absPath string, content []byte) error {
	if err := g.FS.MkdirAll(path.Dir(absPath), 0o755); err != nil {
		return brick.Wrap(brick.KindFileWriteFailure, "failed to create parent directories for "+absPath, err)
	}
	if err := afero.WriteFile(g.FS, absPath, content, 0o644); err != nil {
		return brick.Wrap(brick.KindFileWriteFailure, "failed to write "+absPath, err)
	}
	return nil
}

func filepathToForwardSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func hasEmptySegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return true
		}
	}
	return false
}

// validateAndCoerce implements spec.md §4.4 step 1: missing required
// vars (those with no declared default) raise VariableValidationError;
// everything else is merged over its declared default via
// dario.cat/mergo and coerced to its declared type.
func validateAndCoerce(b brick.Brick, vars map[string]any) (map[string]any, error) {
	defaults := map[string]any{}
	for _, name := range b.VariableNames {
		if def := b.Variables[name].Default; def != nil {
			defaults[name] = def
		}
	}

	merged := map[string]any{}
	if err := mergo.Merge(&merged, defaults); err != nil {
		return nil, brick.Wrap(brick.KindVariableValidationError, "failed to merge variable defaults", err)
	}
	if err := mergo.Merge(&merged, vars, mergo.WithOverride); err != nil {
		return nil, brick.Wrap(brick.KindVariableValidationError, "failed to merge supplied variables", err)
	}

	var missing []string
	typeErrors := map[string]string{}
	for _, name := range b.VariableNames {
		def := b.Variables[name]
		val, present := merged[name]
		if !present {
			missing = append(missing, name)
			continue
		}
		coerced, err := coerce(def.Type, val)
		if err != nil {
			typeErrors[name] = err.Error()
			continue
		}
		merged[name] = coerced
	}

	if len(missing) > 0 || len(typeErrors) > 0 {
		sort.Strings(missing)
		return nil, &brick.Error{
			Kind:       brick.KindVariableValidationError,
			Message:    "variable validation failed",
			Missing:    missing,
			TypeErrors: typeErrors,
		}
	}

	return merged, nil
}

// coerce converts val to the Go representation matching declared (spec
// §4.4: "Coerce numbers/booleans per declared type; arrays pass
// through"). Values already of the right shape pass through unchanged.
func coerce(declared brick.VariableType, val any) (any, error) {
	switch declared {
	case brick.TypeNumber:
		switch v := val.(type) {
		case float64, int, int64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("not a number: %q", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected a number, got %T", val)
		}

	case brick.TypeBoolean:
		switch v := val.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("not a boolean: %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected a boolean, got %T", val)
		}

	case brick.TypeArray:
		if _, ok := val.([]any); !ok {
			return nil, fmt.Errorf("expected an array, got %T", val)
		}
		return val, nil

	case brick.TypeEnum:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected an enum string, got %T", val)
		}
		return s, nil

	default: // string, or anything unrecognized passes through as-is
		return val, nil
	}
}
