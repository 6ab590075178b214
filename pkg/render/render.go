// Package render implements the logic-less template language of
// spec.md §4.1: tokenize -> parse to a node tree -> evaluate against a
// stack of variable scopes, with an ordered table of named lambdas
// registered at construction (design note §9).
package render

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Renderer renders strings and byte buffers against a variable context.
// It is safe for concurrent use once constructed: rendering never
// mutates the receiver.
type Renderer struct {
	lambdas  map[string]LambdaFunc
	partials map[string]string
}

// New builds a Renderer pre-registered with the required lambda table.
// Pass partials (possibly nil) for `{{> name}}` lookups.
func New(partials map[string]string) *Renderer {
	if partials == nil {
		partials = map[string]string{}
	}
	r := &Renderer{
		lambdas:  map[string]LambdaFunc{},
		partials: partials,
	}
	for name, fn := range defaultLambdas() {
		r.RegisterLambda(name, fn)
	}
	return r
}

// RegisterLambda adds or overrides a named lambda.
func (r *Renderer) RegisterLambda(name string, fn LambdaFunc) {
	r.lambdas[normalizeLambdaName(name)] = fn
}

func (r *Renderer) lookupLambda(name string) (LambdaFunc, bool) {
	fn, ok := r.lambdas[normalizeLambdaName(name)]
	return fn, ok
}

// Render renders template against vars. A syntactically invalid
// template raises *RenderError; a missing key renders as "" (spec.md
// §4.1, logic-less convention), never an error.
func (r *Renderer) Render(template string, vars map[string]any) (string, error) {
	nodes, err := parse(template)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := r.evalNodes(nodes, []map[string]any{vars}, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderBytes renders buf against vars (spec.md §4.1). If buf is not
// valid UTF-8, or contains no template delimiter, it is returned
// unchanged rather than rejected.
func (r *Renderer) RenderBytes(buf []byte, vars map[string]any) ([]byte, error) {
	if !utf8.Valid(buf) {
		return buf, nil
	}
	s := string(buf)
	if !strings.Contains(s, openDelim) {
		return buf, nil
	}
	out, err := r.Render(s, vars)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (r *Renderer) evalNodes(nodes []node, scopes []map[string]any, b *strings.Builder) error {
	for _, n := range nodes {
		if err := r.evalNode(n, scopes, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) evalNode(n node, scopes []map[string]any, b *strings.Builder) error {
	switch n.kind {
	case nodeText:
		b.WriteString(n.text)

	case nodeVar:
		val, _ := lookup(scopes, n.key)
		b.WriteString(stringify(val))

	case nodeLambda:
		val, _ := lookup(scopes, n.key)
		fn, ok := r.lookupLambda(n.lambda)
		if !ok {
			return &RenderError{Offset: n.offset, Message: "unknown lambda " + n.lambda}
		}
		b.WriteString(fn(stringify(val)))

	case nodePartial:
		partial, ok := r.partials[n.key]
		if !ok {
			return &RenderError{Offset: n.offset, Message: "unknown partial " + n.key}
		}
		nodes, err := parse(partial)
		if err != nil {
			return err
		}
		if err := r.evalNodes(nodes, scopes, b); err != nil {
			return err
		}

	case nodeSection:
		val, found := lookup(scopes, n.key)
		if !found || isFalsy(val) {
			return nil
		}
		if items, ok := val.([]any); ok {
			for _, item := range items {
				next := pushScope(scopes, item)
				if err := r.evalNodes(n.children, next, b); err != nil {
					return err
				}
			}
			return nil
		}
		next := pushScope(scopes, val)
		return r.evalNodes(n.children, next, b)

	case nodeInverted:
		val, found := lookup(scopes, n.key)
		if found && !isFalsy(val) {
			return nil
		}
		return r.evalNodes(n.children, scopes, b)
	}
	return nil
}

func pushScope(scopes []map[string]any, val any) []map[string]any {
	if m, ok := val.(map[string]any); ok {
		next := make([]map[string]any, 0, len(scopes)+1)
		next = append(next, m)
		next = append(next, scopes...)
		return next
	}
	return scopes
}

func lookup(scopes []map[string]any, key string) (any, bool) {
	for _, scope := range scopes {
		if v, ok := scope[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func isFalsy(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case int, int64, float64:
		return v == 0 || v == int64(0) || v == float64(0)
	default:
		return false
	}
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return ""
	}
}
