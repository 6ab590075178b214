package brick

// RefKind discriminates the three ways a brick can be located.
type RefKind string

const (
	RefPath     RefKind = "path"
	RefGit      RefKind = "git"
	RefRegistry RefKind = "registry"
)

// Ref is the discriminated union BrickRef of spec.md §3: Path, Git or
// Registry. Exactly one of the kind-specific fields is meaningful,
// selected by Kind.
type Ref struct {
	Kind RefKind

	// Path
	Dir string

	// Git
	URL     string
	GitRef  string
	SubPath string

	// Registry
	Name             string
	VersionConstraint string
}

func PathRef(dir string) Ref {
	return Ref{Kind: RefPath, Dir: dir}
}

func NewGitRef(url, ref, subPath string) Ref {
	return Ref{Kind: RefGit, URL: url, GitRef: ref, SubPath: subPath}
}

func RegistryRef(name, constraint string) Ref {
	return Ref{Kind: RefRegistry, Name: name, VersionConstraint: constraint}
}

// CacheKeyHint returns a human-readable label for the ref: the registry
// name, the git URL, or the directory. It is not the cache key; for a
// registry ref the name is the first part of its `<name>_<version>`
// cache directory, while path and git refs are cached under a content
// hash (spec.md §4.3).
func (r Ref) CacheKeyHint() string {
	switch r.Kind {
	case RefRegistry:
		return r.Name
	case RefGit:
		return r.URL
	default:
		return r.Dir
	}
}

// ResolvedBrick is the result of resolving a Ref: the brick's bytes,
// materialized under a content-addressed cache directory.
type ResolvedBrick struct {
	Ref               Ref
	CanonicalCacheDir string
	Brick             Brick
	ContentHash       string
}
