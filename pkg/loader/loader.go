// Package loader reads a brick directory or in-memory bundle into a
// structured brick.Brick value (spec.md §4.2).
package loader

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/bundle"
)

const (
	metadataFileName  = "brick.yaml"
	templateRootName  = "__brick__"
	hooksDirName      = "hooks"
	preGenBaseName    = "pre_gen"
	postGenBaseName   = "post_gen"
)

// Loader reads bricks from directories or decoded bundles.
type Loader struct {
	FS     afero.Fs
	Logger logger.Logger
}

// New builds a Loader backed by fs. A nil Logger defaults to discard.
func New(fs afero.Fs, log logger.Logger) *Loader {
	if log == nil {
		log = discard.New()
	}
	return &Loader{FS: fs, Logger: log}
}

// metadataDoc mirrors the recognized keys of brick.yaml (spec.md
// §4.2). Unrecognized keys are ignored: decoding does not reject them,
// and they are not kept anywhere in the loaded brick. Vars uses
// yaml.MapSlice rather than a
// plain map so the loader can preserve the declaration order required
// by brick.Brick.VariableNames.
type metadataDoc struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Version     string        `yaml:"version"`
	PublishTo   string        `yaml:"publish_to"`
	Vars        yaml.MapSlice `yaml:"vars"`
}

// LoadFromDir reads brick.yaml, the __brick__ tree, and an optional
// hooks/ directory rooted at dir.
func (l *Loader) LoadFromDir(dir string) (brick.Brick, error) {
	l.Logger.WithFields("dir", dir).Debug("Loading brick from directory")

	metaPath := path.Join(dir, metadataFileName)
	metaBytes, err := afero.ReadFile(l.FS, metaPath)
	if err != nil {
		return brick.Brick{}, brick.Wrap(brick.KindBrickMissingMetadata,
			fmt.Sprintf("missing %s", metadataFileName), err)
	}

	b, err := l.parseMetadata(metaBytes)
	if err != nil {
		return brick.Brick{}, err
	}

	templateRoot := path.Join(dir, templateRootName)
	if exists, _ := afero.DirExists(l.FS, templateRoot); !exists {
		return brick.Brick{}, brick.New(brick.KindBrickMissingTemplateRoot,
			fmt.Sprintf("missing %s directory", templateRootName))
	}

	templateFiles, err := l.walkTemplateFiles(templateRoot)
	if err != nil {
		return brick.Brick{}, err
	}
	b.TemplateFiles = templateFiles

	hooks, err := l.loadHooks(path.Join(dir, hooksDirName))
	if err != nil {
		return brick.Brick{}, err
	}
	b.Hooks = hooks

	l.Logger.WithFields("name", b.Name, "files", len(b.TemplateFiles)).Info("Loaded brick")
	return b, nil
}

func (l *Loader) parseMetadata(metaBytes []byte) (brick.Brick, error) {
	var doc metadataDoc
	if err := yaml.Unmarshal(metaBytes, &doc); err != nil {
		return brick.Brick{}, brick.Wrap(brick.KindBrickMalformedMetadata, "invalid brick.yaml", err)
	}
	if doc.Name == "" {
		return brick.Brick{}, brick.New(brick.KindBrickMissingMetadata, "brick.yaml is missing name")
	}
	if !brick.NameValid(doc.Name) {
		return brick.Brick{}, brick.New(brick.KindBrickMalformedMetadata,
			fmt.Sprintf("brick name %q does not match ^[a-z][a-z0-9_]*$", doc.Name))
	}

	b := brick.Brick{
		Name:        doc.Name,
		Description: doc.Description,
		Version:     doc.Version,
		PublishTo:   doc.PublishTo,
		Variables:   map[string]brick.VariableDef{},
	}

	for _, item := range doc.Vars {
		name, ok := item.Key.(string)
		if !ok {
			continue
		}
		def, err := parseVariableDef(item.Value)
		if err != nil {
			return brick.Brick{}, brick.Wrap(brick.KindBrickMalformedMetadata,
				fmt.Sprintf("invalid variable %q", name), err)
		}
		b.Variables[name] = def
		b.VariableNames = append(b.VariableNames, name)
	}

	return b, nil
}

// parseVariableDef decodes either the string shorthand (prompt text
// only, type defaults to string) or the full object form.
func parseVariableDef(raw any) (brick.VariableDef, error) {
	if shorthand, ok := raw.(string); ok {
		return brick.VariableDef{Type: brick.TypeString, Prompt: shorthand}, nil
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return brick.VariableDef{}, fmt.Errorf("expected string or mapping, got %T", raw)
	}

	def := brick.VariableDef{Type: brick.TypeString}
	if s, ok := fields["type"].(string); ok && s != "" {
		def.Type = brick.VariableType(s)
	}
	if s, ok := fields["description"].(string); ok {
		def.Description = s
	}
	if v, ok := fields["default"]; ok {
		def.Default = v
	}
	if s, ok := fields["prompt"].(string); ok {
		def.Prompt = s
	}
	if items, ok := fields["values"].([]any); ok {
		for _, v := range items {
			if s, ok := v.(string); ok {
				def.Values = append(def.Values, s)
			}
		}
	}
	return def, nil
}

func (l *Loader) walkTemplateFiles(root string) ([]brick.TemplateFile, error) {
	var files []brick.TemplateFile
	err := afero.Walk(l.FS, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(l.FS, p)
		if err != nil {
			return err
		}
		relPath, err := relTo(root, p)
		if err != nil {
			return err
		}
		files = append(files, brick.TemplateFile{RelPath: relPath, Bytes: data})
		return nil
	})
	if err != nil {
		return nil, brick.Wrap(brick.KindBrickMissingTemplateRoot, "failed walking template tree", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func (l *Loader) loadHooks(dir string) (brick.Hooks, error) {
	var hooks brick.Hooks

	exists, err := afero.DirExists(l.FS, dir)
	if err != nil || !exists {
		return hooks, nil
	}

	entries, err := afero.ReadDir(l.FS, dir)
	if err != nil {
		return hooks, fmt.Errorf("failed to read hooks directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		full := path.Join(dir, name)
		data, err := afero.ReadFile(l.FS, full)
		if err != nil {
			return hooks, fmt.Errorf("failed to read hook file %s: %w", full, err)
		}

		base := strings.TrimSuffix(name, path.Ext(name))
		switch {
		case base == preGenBaseName:
			hooks.PreGen = &brick.HookFile{RelPath: name, Bytes: data}
		case base == postGenBaseName:
			hooks.PostGen = &brick.HookFile{RelPath: name, Bytes: data}
		default:
			// anything else under hooks/ is the dependency manifest;
			// spec.md §4.2 names it generically ("a dependency-manifest
			// file") so the first non pre/post file found wins.
			if hooks.Manifest == nil {
				hooks.Manifest = data
				hooks.ManifestPath = name
			}
		}
	}

	return hooks, nil
}

// LoadFromBundle decodes a universal (binary) or dart-source (text)
// bundle into a brick.Brick (spec.md §4.2/§4.6). It tries the binary
// form first; a payload that fails to decode as a universal bundle for
// any reason (inflate, JSON or base64 error) is retried as source text,
// and only the source decoder's error is returned.
func (l *Loader) LoadFromBundle(data []byte) (brick.Brick, error) {
	if b, err := bundle.DecodeUniversal(data); err == nil {
		l.Logger.WithFields("format", "universal").Debug("Loaded brick from bundle")
		return b, nil
	}
	b, err := bundle.DecodeSource(string(data))
	if err != nil {
		return brick.Brick{}, err
	}
	l.Logger.WithFields("format", "source").Debug("Loaded brick from bundle")
	return b, nil
}

func relTo(root, full string) (string, error) {
	rel := strings.TrimPrefix(full, root)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("empty relative path for %s under %s", full, root)
	}
	return rel, nil
}
