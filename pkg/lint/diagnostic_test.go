package lint

import (
	"reflect"
	"strconv"
	"testing"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
)

func TestSort(t *testing.T) {
	at := func(path string, start int, k Kind, dep string) Diagnostic {
		return Diagnostic{Manifest: path, Span: manifest.Span{Start: start}, Kind: k, Dependency: dep}
	}
	diags := []Diagnostic{
		at("b/Cargo.toml", 10, KindUnusedDependency, "x"),
		at("a/Cargo.toml", 50, KindRedundantFeature, "y"),
		at("a/Cargo.toml", 10, KindFixConflict, "z"),
		at("a/Cargo.toml", 10, KindUnusedDependency, "z"),
		at("a/Cargo.toml", 10, KindRedundantDefaultFeatures, "z"),
		at("a/Cargo.toml", 10, KindRedundantFeature, "z"),
	}
	Sort(diags)

	want := []string{
		"a/Cargo.toml 10 redundant-feature",
		"a/Cargo.toml 10 redundant-default-features",
		"a/Cargo.toml 10 unused-dependency",
		"a/Cargo.toml 10 fix-conflict",
		"a/Cargo.toml 50 redundant-feature",
		"b/Cargo.toml 10 unused-dependency",
	}
	got := make([]string, len(diags))
	for i, d := range diags {
		got[i] = d.Manifest + " " + strconv.Itoa(d.Span.Start) + " " + string(d.Kind)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sort() order =\n%v\nwant\n%v", got, want)
	}
}

func TestParseKinds(t *testing.T) {
	got, err := ParseKinds([]string{"unused-dependency", " redundant-feature "})
	if err != nil {
		t.Fatalf("ParseKinds() error = %v", err)
	}
	if want := []Kind{KindUnusedDependency, KindRedundantFeature}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseKinds() = %v, want %v", got, want)
	}

	for _, bad := range []string{"fix-conflict", "unused", ""} {
		if _, err := ParseKinds([]string{bad}); !abErrors.Is(err, abErrors.ErrCodeInvalidConfig) {
			t.Errorf("ParseKinds(%q) error = %v, want %s", bad, err, abErrors.ErrCodeInvalidConfig)
		}
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{
		Kind:     KindUnusedDependency,
		Manifest: "crates/app/Cargo.toml",
		Line:     12,
		Message:  "unused dependency rand",
	}
	if got, want := d.String(), "crates/app/Cargo.toml:12: unused-dependency: unused dependency rand"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if d.Fixable() {
		t.Error("Fixable() = true for a diagnostic without a fix")
	}
	d.Fix = &Fix{Edits: []TextEdit{{Start: 1, End: 2}}}
	if !d.Fixable() || len(Fixable([]Diagnostic{d, {}})) != 1 {
		t.Error("Fixable() should select diagnostics with edits")
	}
}
