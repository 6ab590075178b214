package hook

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/heimdalr/dag"

	"github.com/go-mason/mason/pkg/brick"
)

// Dependency is one entry of a hook's dependency manifest: a named
// package with an install command and the other entries it must be
// installed after.
type Dependency struct {
	Name      string   `yaml:"name"`
	DependsOn []string `yaml:"depends_on"`
	Install   []string `yaml:"install"`
}

// ParseManifest decodes a hook dependency manifest. Spec.md §4.2 names
// this file generically ("a dependency-manifest file"); the shape
// recognized here is a YAML list of dependencies, each optionally
// declaring peers it must be installed after.
func ParseManifest(data []byte) ([]Dependency, error) {
	var deps []Dependency
	if err := yaml.Unmarshal(data, &deps); err != nil {
		return nil, brick.Wrap(brick.KindHookDependencyInstallFail, "invalid hook dependency manifest", err)
	}
	return deps, nil
}

// TopoOrder returns deps ordered so that every dependency appears
// after everything it depends on. Mirrors the teacher's own use of
// heimdalr/dag (AddVertexByID + AddEdge + DFSWalk) to merge scripts in
// dependency order, repurposed here for hook dependency provisioning.
func TopoOrder(deps []Dependency) ([]Dependency, error) {
	g := dag.NewDAG()

	for i := range deps {
		d := &deps[i]
		if err := g.AddVertexByID(d.Name, d); err != nil {
			return nil, brick.Wrap(brick.KindHookDependencyInstallFail,
				fmt.Sprintf("duplicate dependency %q in manifest", d.Name), err)
		}
	}

	known := make(map[string]bool, len(deps))
	for _, d := range deps {
		known[d.Name] = true
	}
	for _, d := range deps {
		for _, parent := range d.DependsOn {
			if !known[parent] {
				return nil, brick.New(brick.KindHookDependencyInstallFail,
					fmt.Sprintf("dependency %q declares unknown depends_on %q", d.Name, parent))
			}
			if err := g.AddEdge(parent, d.Name); err != nil {
				if errors.As(err, &dag.EdgeDuplicateError{}) {
					continue
				}
				return nil, brick.Wrap(brick.KindHookDependencyInstallFail,
					fmt.Sprintf("invalid dependency edge %s -> %s", parent, d.Name), err)
			}
		}
	}

	var order []Dependency
	var walkErr error
	g.DFSWalk(dagVisitorFunc(func(v dag.Vertexer) {
		_, val := v.Vertex()
		d, ok := val.(*Dependency)
		if !ok {
			walkErr = errors.Join(walkErr, fmt.Errorf("failed to cast dependency graph vertex to Dependency"))
			return
		}
		order = append(order, *d)
	}))
	if walkErr != nil {
		return nil, brick.Wrap(brick.KindHookDependencyInstallFail, "failed to order dependency graph", walkErr)
	}

	return order, nil
}

// dagVisitorFunc adapts a plain func to heimdalr/dag's Visitor interface.
type dagVisitorFunc func(dag.Vertexer)

func (f dagVisitorFunc) Visit(v dag.Vertexer) { f(v) }
