package render

import (
	"testing"
)

func TestRenderVariables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		vars     map[string]any
		expected string
	}{
		{
			name:     "simple substitution",
			template: "Hello {{name}}!",
			vars:     map[string]any{"name": "World"},
			expected: "Hello World!",
		},
		{
			name:     "missing key renders empty",
			template: "Hello {{name}}!",
			vars:     map[string]any{},
			expected: "Hello !",
		},
		{
			name:     "bool stringifies",
			template: "{{flag}}",
			vars:     map[string]any{"flag": true},
			expected: "true",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			r := New(nil)
			out, err := r.Render(test.template, test.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != test.expected {
				t.Errorf("expected %q, got %q", test.expected, out)
			}
		})
	}
}

func TestRenderSections(t *testing.T) {
	t.Parallel()

	r := New(nil)

	out, err := r.Render("{{#items}}[{{.}}]{{/items}}", map[string]any{
		"items": []any{map[string]any{".": "a"}, map[string]any{".": "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[a][b]" {
		t.Errorf("expected [a][b], got %q", out)
	}

	out, err = r.Render("{{#show}}yes{{/show}}", map[string]any{"show": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty, got %q", out)
	}
}

func TestRenderInvertedSections(t *testing.T) {
	t.Parallel()

	r := New(nil)
	out, err := r.Render("{{^show}}fallback{{/show}}", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "fallback" {
		t.Errorf("expected fallback, got %q", out)
	}
}

func TestRenderMismatchedCloseTag(t *testing.T) {
	t.Parallel()

	r := New(nil)
	_, err := r.Render("{{#a}}text{{/b}}", map[string]any{"a": true})
	if err == nil {
		t.Fatal("expected error for mismatched close tag")
	}
}

func TestRenderLambdaBothSyntaxes(t *testing.T) {
	t.Parallel()

	r := New(nil)
	vars := map[string]any{"name": "hello world"}

	pipe, err := r.Render("{{name#pascalCase}}", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dotCall, err := r.Render("{{name.pascalCase()}}", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipe != dotCall {
		t.Errorf("expected both lambda syntaxes to agree, got %q vs %q", pipe, dotCall)
	}
	if pipe != "HelloWorld" {
		t.Errorf("expected HelloWorld, got %q", pipe)
	}
}

func TestRenderBytesPassesThroughNonTemplateContent(t *testing.T) {
	t.Parallel()

	r := New(nil)
	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	out, err := r.RenderBytes(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(raw) {
		t.Errorf("expected binary buffer unchanged")
	}

	plain := []byte("no templating here")
	out, err = r.RenderBytes(plain, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(plain) {
		t.Errorf("expected plain text unchanged")
	}
}

func TestRenderPartials(t *testing.T) {
	t.Parallel()

	r := New(map[string]string{"greeting": "Hi {{name}}"})
	out, err := r.Render("{{> greeting}}!", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hi Ada!" {
		t.Errorf("expected 'Hi Ada!', got %q", out)
	}
}

func TestCaseLambdasIdempotentOnCanonicalForm(t *testing.T) {
	t.Parallel()

	r := New(nil)
	names := []string{"camelCase", "constantCase", "dotCase", "headerCase", "lowerCase",
		"pascalCase", "paramCase", "pathCase", "sentenceCase", "snakeCase", "titleCase", "upperCase", "mustacheCase"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tmpl := "{{v#" + name + "}}"
			once, err := r.Render(tmpl, map[string]any{"v": "some_value name"})
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", name, err)
			}
			twice, err := r.Render(tmpl, map[string]any{"v": once})
			if err != nil {
				t.Fatalf("unexpected error applying %s twice: %v", name, err)
			}
			if once != twice {
				t.Errorf("%s not stable: %q -> %q", name, once, twice)
			}
		})
	}
}

func TestLambdaAliasResolution(t *testing.T) {
	t.Parallel()

	r := New(nil)
	canonical, err := r.Render("{{v#snakeCase}}", map[string]any{"v": "HelloWorld"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alias, err := r.Render("{{v#SNAKE_CASE}}", map[string]any{"v": "HelloWorld"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canonical != alias {
		t.Errorf("expected alias to resolve to the same lambda: %q vs %q", canonical, alias)
	}
}

func TestUnknownLambdaIsAnError(t *testing.T) {
	t.Parallel()

	r := New(nil)
	_, err := r.Render("{{v#notALambda}}", map[string]any{"v": "x"})
	if err == nil {
		t.Fatal("expected error for unknown lambda")
	}
}
