package bundle

import (
	"errors"
	"sort"
	"testing"

	"github.com/go-mason/mason/pkg/brick"
)

func sampleBrick() brick.Brick {
	return brick.Brick{
		Name:        "my_brick",
		Description: "a test brick",
		Version:     "0.1.0",
		VariableNames: []string{"name", "use_tests"},
		Variables: map[string]brick.VariableDef{
			"name":      {Type: brick.TypeString, Prompt: "What's the name?"},
			"use_tests": {Type: brick.TypeBoolean, Default: true},
		},
		TemplateFiles: []brick.TemplateFile{
			{RelPath: "lib/{{name}}.dart", Bytes: []byte("class {{name.pascalCase()}} {}")},
			{RelPath: "assets/logo.png", Bytes: []byte{0xff, 0xd8, 0xff, 0x00}},
		},
		Hooks: brick.Hooks{
			PreGen:  &brick.HookFile{RelPath: "pre_gen.dart", Bytes: []byte("void run(ctx) {}")},
			PostGen: &brick.HookFile{RelPath: "post_gen.dart", Bytes: []byte("void run(ctx) {}")},
		},
	}
}

func TestUniversalBundleRoundTrip(t *testing.T) {
	t.Parallel()

	original := sampleBrick()
	data, err := EncodeUniversal(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeUniversal(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	assertBrickEqual(t, original, decoded)
}

func TestSourceBundleRoundTrip(t *testing.T) {
	t.Parallel()

	original := sampleBrick()
	text, err := EncodeSource(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeSource(text)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	assertBrickEqual(t, original, decoded)
}

func TestDecodeUniversalMalformedPayloadIsBundleDecodeError(t *testing.T) {
	t.Parallel()

	_, err := DecodeUniversal([]byte("not a valid deflate stream"))
	if err == nil {
		t.Fatal("expected an error")
	}
	var brickErr *brick.Error
	if !errors.As(err, &brickErr) {
		t.Fatalf("expected *brick.Error, got %T", err)
	}
	if brickErr.Kind != brick.KindBundleDecodeError {
		t.Errorf("expected KindBundleDecodeError, got %s", brickErr.Kind)
	}
}

func TestDecodeSourceMissingBackticksIsBundleDecodeError(t *testing.T) {
	t.Parallel()

	_, err := DecodeSource("no backticks here")
	if err == nil {
		t.Fatal("expected an error")
	}
	var brickErr *brick.Error
	if !errors.As(err, &brickErr) {
		t.Fatalf("expected *brick.Error, got %T", err)
	}
	if brickErr.Kind != brick.KindBundleDecodeError {
		t.Errorf("expected KindBundleDecodeError, got %s", brickErr.Kind)
	}
}

func assertBrickEqual(t *testing.T, want, got brick.Brick) {
	t.Helper()

	if want.Name != got.Name || want.Description != got.Description || want.Version != got.Version {
		t.Fatalf("metadata mismatch: want %+v, got %+v", want, got)
	}

	wantNames := append([]string{}, want.VariableNames...)
	gotNames := append([]string{}, got.VariableNames...)
	sort.Strings(wantNames)
	sort.Strings(gotNames)
	if len(wantNames) != len(gotNames) {
		t.Fatalf("variable name count mismatch: want %v, got %v", wantNames, gotNames)
	}
	for i := range wantNames {
		if wantNames[i] != gotNames[i] {
			t.Fatalf("variable names mismatch: want %v, got %v", wantNames, gotNames)
		}
	}

	if len(want.TemplateFiles) != len(got.TemplateFiles) {
		t.Fatalf("template file count mismatch: want %d, got %d", len(want.TemplateFiles), len(got.TemplateFiles))
	}
	wantFiles := map[string][]byte{}
	for _, f := range want.TemplateFiles {
		wantFiles[f.RelPath] = f.Bytes
	}
	for _, f := range got.TemplateFiles {
		wb, ok := wantFiles[f.RelPath]
		if !ok {
			t.Fatalf("unexpected file %s in decoded brick", f.RelPath)
		}
		if string(wb) != string(f.Bytes) {
			t.Fatalf("file %s bytes mismatch", f.RelPath)
		}
	}

	if (want.Hooks.PreGen == nil) != (got.Hooks.PreGen == nil) {
		t.Fatalf("pre_gen presence mismatch")
	}
	if want.Hooks.PreGen != nil && string(want.Hooks.PreGen.Bytes) != string(got.Hooks.PreGen.Bytes) {
		t.Fatalf("pre_gen bytes mismatch")
	}
}
