package render

import (
	"sort"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// LambdaFunc is a named string-to-string function invocable via
// `{{var#lambda}}` or `{{var.lambda()}}` (design note §9: "Lambdas are
// an ordered mapping from name to fn(string) -> string, registered at
// construction").
type LambdaFunc func(string) string

// splitWords implements the tokenization rule of spec.md §4.1: split on
// transitions between Unicode categories (lower->upper, letter->digit)
// and on any run of non-alphanumeric characters.
func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case i > 0:
			prev := runes[i-1]
			prevIsLower := unicode.IsLower(prev)
			curIsUpper := unicode.IsUpper(r)
			prevIsLetter := unicode.IsLetter(prev)
			curIsDigit := unicode.IsDigit(r)
			prevIsDigit := unicode.IsDigit(prev)
			if (prevIsLower && curIsUpper) || (prevIsLetter && curIsDigit) || (prevIsDigit && unicode.IsLetter(r)) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func joinWith(words []string, sep string, wordCase func(i int, w string) string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = wordCase(i, w)
	}
	return strings.Join(parts, sep)
}

func lowerWord(w string) string { return strings.ToLower(w) }
func capitalizeWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func headerCase(s string) string {
	words := splitWords(s)
	return joinWith(words, "-", func(_ int, w string) string { return capitalizeWord(w) })
}

func titleCase(s string) string {
	words := splitWords(s)
	return joinWith(words, " ", func(_ int, w string) string { return capitalizeWord(w) })
}

func sentenceCase(s string) string {
	words := splitWords(s)
	return joinWith(words, " ", func(i int, w string) string {
		if i == 0 {
			return capitalizeWord(w)
		}
		return lowerWord(w)
	})
}

func dotCase(s string) string {
	return strcase.ToDelimited(s, '.')
}

func pathCase(s string) string {
	return strcase.ToDelimited(s, '/')
}

// defaultLambdas returns the wire-contract required lambda table of
// spec.md §4.1, backed by iancoleman/strcase for the forms it already
// covers and the shared splitWords tokenizer for the rest.
func defaultLambdas() map[string]LambdaFunc {
	return map[string]LambdaFunc{
		"camelCase":     strcase.ToLowerCamel,
		"constantCase":  strcase.ToScreamingSnake,
		"dotCase":       dotCase,
		"headerCase":    headerCase,
		"lowerCase":     strings.ToLower,
		"pascalCase":    strcase.ToCamel,
		"paramCase":     strcase.ToKebab,
		"pathCase":      pathCase,
		"sentenceCase":  sentenceCase,
		"snakeCase":     strcase.ToSnake,
		"titleCase":     titleCase,
		"upperCase":     strings.ToUpper,
		"mustacheCase":  func(s string) string { return s },
	}
}

// LambdaNames returns the canonical names of the required lambda
// table, sorted, for callers (e.g. the CLI's `lambdas` command) that
// want to describe what's available without constructing a Renderer.
func LambdaNames() []string {
	names := make([]string, 0, len(defaultLambdas()))
	for name := range defaultLambdas() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeLambdaName strips separators and lowercases, so any
// reasonable alias of a canonical name (CamelCase, camel_case,
// CAMEL-CASE, ...) resolves to the same lambda, per spec.md §4.1:
// "any alias in the table is accepted".
func normalizeLambdaName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
