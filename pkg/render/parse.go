package render

import (
	"fmt"
	"regexp"
	"strings"
)

// RenderError is raised for a syntactically invalid template (spec.md
// §4.1): unmatched section tags, a close tag with the wrong name, or an
// unterminated `{{`.
type RenderError struct {
	Template string
	Offset   int
	Message  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: offset %d: %s", e.Offset, e.Message)
}

var dotCallLambda = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z][A-Za-z0-9_]*)\(\)$`)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// parse tokenizes and parses template into a flat node tree, one level
// of children per section. It does not evaluate lambdas by name (that
// is the evaluator's job) but does classify lambda tags.
func parse(template string) ([]node, error) {
	nodes, rest, err := parseSequence(template, 0, "")
	if err != nil {
		return nil, err
	}
	if rest != len(template) {
		return nil, &RenderError{Template: template, Offset: rest, Message: "unexpected trailing content"}
	}
	return nodes, nil
}

// parseSequence parses nodes until it hits EOF or a close tag matching
// closingFor (the key of the section being closed, "" at top level). It
// returns the parsed nodes and the offset just past the consumed close
// tag (or len(template) at EOF).
func parseSequence(template string, start int, closingFor string) ([]node, int, error) {
	var nodes []node
	pos := start
	for pos < len(template) {
		idx := strings.Index(template[pos:], openDelim)
		if idx < 0 {
			if closingFor != "" {
				return nil, 0, &RenderError{Template: template, Offset: pos, Message: fmt.Sprintf("unterminated section %q", closingFor)}
			}
			nodes = appendText(nodes, template[pos:])
			return nodes, len(template), nil
		}
		tagStart := pos + idx
		if idx > 0 {
			nodes = appendText(nodes, template[pos:tagStart])
		}

		closeIdx := strings.Index(template[tagStart:], closeDelim)
		if closeIdx < 0 {
			return nil, 0, &RenderError{Template: template, Offset: tagStart, Message: "unterminated tag"}
		}
		tagEnd := tagStart + closeIdx + len(closeDelim)
		content := strings.TrimSpace(template[tagStart+len(openDelim) : tagStart+closeIdx])

		switch {
		case content == "":
			return nil, 0, &RenderError{Template: template, Offset: tagStart, Message: "empty tag"}

		case strings.HasPrefix(content, "#"):
			key := strings.TrimSpace(content[1:])
			children, nextPos, err := parseSequence(template, tagEnd, key)
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, node{kind: nodeSection, key: key, children: children, offset: tagStart})
			pos = nextPos
			continue

		case strings.HasPrefix(content, "^"):
			key := strings.TrimSpace(content[1:])
			children, nextPos, err := parseSequence(template, tagEnd, key)
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, node{kind: nodeInverted, key: key, children: children, offset: tagStart})
			pos = nextPos
			continue

		case strings.HasPrefix(content, "/"):
			key := strings.TrimSpace(content[1:])
			if key != closingFor {
				return nil, 0, &RenderError{Template: template, Offset: tagStart, Message: fmt.Sprintf("mismatched close tag %q, expected %q", key, closingFor)}
			}
			return nodes, tagEnd, nil

		case strings.HasPrefix(content, ">"):
			name := strings.TrimSpace(content[1:])
			nodes = append(nodes, node{kind: nodePartial, key: name, offset: tagStart})

		default:
			key, lambda, isLambda := splitLambdaTag(content)
			if isLambda {
				nodes = append(nodes, node{kind: nodeLambda, key: key, lambda: lambda, offset: tagStart})
			} else {
				nodes = append(nodes, node{kind: nodeVar, key: content, offset: tagStart})
			}
		}
		pos = tagEnd
	}

	if closingFor != "" {
		return nil, 0, &RenderError{Template: template, Offset: start, Message: fmt.Sprintf("unterminated section %q", closingFor)}
	}
	return nodes, pos, nil
}

func appendText(nodes []node, text string) []node {
	if text == "" {
		return nodes
	}
	return append(nodes, node{kind: nodeText, text: text})
}

// splitLambdaTag recognizes both lambda syntaxes accepted by the wire
// contract: the pipe form `var#lambda` and the dot-call form
// `var.lambda()`.
func splitLambdaTag(content string) (key, lambda string, ok bool) {
	if m := dotCallLambda.FindStringSubmatch(content); m != nil {
		return m[1], m[2], true
	}
	if idx := strings.LastIndex(content, "#"); idx >= 0 {
		key = strings.TrimSpace(content[:idx])
		lambda = strings.TrimSpace(content[idx+1:])
		if key != "" && lambda != "" {
			return key, lambda, true
		}
	}
	return "", "", false
}
