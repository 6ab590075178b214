package cli

import (
	"fmt"
	"strings"

	"github.com/go-mason/mason/pkg/brick"
)

// parseRef accepts the three BrickRef forms as one positional argument
// (spec.md §3's discriminated union, flattened into a CLI-friendly
// grammar):
//
//	./path/to/brick                  -> Path
//	git:https://host/repo[@ref][#sub] -> Git
//	name[@constraint]                -> Registry (anything else)
func parseRef(arg string) (brick.Ref, error) {
	switch {
	case strings.HasPrefix(arg, "."), strings.HasPrefix(arg, "/"):
		return brick.PathRef(arg), nil

	case strings.HasPrefix(arg, "git:"):
		rest := strings.TrimPrefix(arg, "git:")
		url := rest
		ref := ""
		subPath := ""
		if idx := strings.Index(rest, "#"); idx >= 0 {
			url, subPath = rest[:idx], rest[idx+1:]
		}
		if idx := strings.Index(url, "@"); idx >= 0 {
			url, ref = url[:idx], url[idx+1:]
		}
		if url == "" {
			return brick.Ref{}, fmt.Errorf("invalid git ref %q: missing repository URL", arg)
		}
		return brick.NewGitRef(url, ref, subPath), nil

	default:
		name, constraint := arg, ""
		if idx := strings.Index(arg, "@"); idx >= 0 {
			name, constraint = arg[:idx], arg[idx+1:]
		}
		if name == "" {
			return brick.Ref{}, fmt.Errorf("invalid brick reference %q", arg)
		}
		return brick.RegistryRef(name, constraint), nil
	}
}
