package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/go-mason/mason/pkg/brick"
)

// loadVars reads a YAML file of brick variables, mirroring the
// loader's use of goccy/go-yaml for every other on-disk document.
func loadVars(fs afero.Fs, path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vars file %s: %w", path, err)
	}

	vars := map[string]any{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse vars file %s: %w", path, err)
	}
	return vars, nil
}

// promptFileConflictResolver is the CollisionPolicy.FileConflictResolver
// wired in interactive use: it asks on stdin/stdout once per
// conflicting destination and caches nothing itself (the generator
// already caches its answer per destination, spec.md §4.4).
func promptFileConflictResolver(path string, _, _ []byte) (brick.OnConflict, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprintf(os.Stdout, "%s already exists. Overwrite, skip or append? [o/s/a] ", path)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read response for %s: %w", path, err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o", "overwrite":
			return brick.OnConflictOverwrite, nil
		case "s", "skip":
			return brick.OnConflictSkip, nil
		case "a", "append":
			return brick.OnConflictAppend, nil
		}
	}
}
