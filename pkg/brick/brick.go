// Package brick defines the immutable data model shared by the loader,
// resolver, generator and hook runner: a Brick, its resolution key, and
// the records produced while generating from it.
package brick

import "regexp"

var nameRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// VariableType is the declared type of a brick variable.
type VariableType string

const (
	TypeString  VariableType = "string"
	TypeNumber  VariableType = "number"
	TypeBoolean VariableType = "boolean"
	TypeEnum    VariableType = "enum"
	TypeArray   VariableType = "array"
)

// VariableDef describes one entry of a brick's vars map.
type VariableDef struct {
	Type    VariableType `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Default any          `json:"default,omitempty" yaml:"default,omitempty"`
	Prompt  string       `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Values  []string     `json:"values,omitempty" yaml:"values,omitempty"`
}

// TemplateFile is one entry of a brick's __brick__ tree. RelPath and Bytes
// may both contain template tags.
type TemplateFile struct {
	RelPath string
	Bytes   []byte
}

// HookFile is a pre_gen/post_gen script, still in source form.
type HookFile struct {
	RelPath string
	Bytes   []byte
}

// Hooks groups the optional hook scripts and dependency manifest the
// loader found alongside a brick's template tree.
type Hooks struct {
	PreGen       *HookFile
	PostGen      *HookFile
	Manifest     []byte
	ManifestPath string
}

// Brick is an immutable, fully-loaded brick: metadata, variable
// declarations, the template tree, and optional hooks.
type Brick struct {
	Name        string
	Description string
	Version     string
	PublishTo   string

	// VariableNames preserves declaration order; Variables holds the
	// definitions keyed by name (invariant ii of spec.md §3: every
	// variable referenced with no default must be present in vars).
	VariableNames []string
	Variables     map[string]VariableDef

	TemplateFiles []TemplateFile
	Hooks         Hooks
}

// NameValid reports whether the brick's name satisfies invariant (i) of
// spec.md §3: `^[a-z][a-z0-9_]*$`.
func NameValid(name string) bool {
	return nameRegexp.MatchString(name)
}

// Disposition is the outcome recorded for one file written (or not
// written) by the generator.
type Disposition string

const (
	DispositionCreated    Disposition = "created"
	DispositionOverwritten Disposition = "overwritten"
	DispositionAppended   Disposition = "appended"
	DispositionSkipped    Disposition = "skipped"
	DispositionIdentical  Disposition = "identical"
)

// GeneratedFile is one record of the generator's report.
type GeneratedFile struct {
	AbsPath     string
	Disposition Disposition
	Bytes       []byte
}

// OnConflict selects the write behavior when a rendered destination
// path already exists on disk.
type OnConflict string

const (
	OnConflictPrompt    OnConflict = "prompt"
	OnConflictOverwrite OnConflict = "overwrite"
	OnConflictSkip      OnConflict = "skip"
	OnConflictAppend    OnConflict = "append"
)

// FileConflictResolver is the capability the generator invokes per
// conflicting file when OnConflict is "prompt". It returns one of the
// three concrete policies (overwrite, skip or append), never
// OnConflictPrompt itself.
type FileConflictResolver func(path string, existing, incoming []byte) (OnConflict, error)

// CollisionPolicy controls per-file collision handling (spec.md §3).
type CollisionPolicy struct {
	OnConflict           OnConflict
	FileConflictResolver FileConflictResolver
}
