package lint

import (
	"fmt"
	"sort"
	"strings"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
)

// Kind names a lint.
type Kind string

const (
	KindRedundantFeature         Kind = "redundant-feature"
	KindRedundantDefaultFeatures Kind = "redundant-default-features"
	KindUnusedDependency         Kind = "unused-dependency"

	// KindFixConflict is raised by the fix applier, never by a check.
	KindFixConflict Kind = "fix-conflict"
)

// Kinds lists the lints the engine runs, in report order.
var Kinds = []Kind{KindRedundantFeature, KindRedundantDefaultFeatures, KindUnusedDependency}

func (k Kind) rank() int {
	switch k {
	case KindRedundantFeature:
		return 0
	case KindRedundantDefaultFeatures:
		return 1
	case KindUnusedDependency:
		return 2
	case KindFixConflict:
		return 3
	default:
		return 4
	}
}

// ParseKinds validates lint names given on the command line or in config.
func ParseKinds(names []string) ([]Kind, error) {
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(strings.TrimSpace(n))
		if k.rank() > KindUnusedDependency.rank() {
			valid := make([]string, len(Kinds))
			for i, v := range Kinds {
				valid[i] = string(v)
			}
			return nil, abErrors.New(abErrors.ErrCodeInvalidConfig,
				"unknown lint %q (valid: %s)", n, strings.Join(valid, ", "))
		}
		out = append(out, k)
	}
	return out, nil
}

// TextEdit replaces a byte range of a manifest.
type TextEdit = manifest.Edit

// Fix is a suggested change that resolves a diagnostic.
type Fix struct {
	Description string
	Edits       []TextEdit
}

// Diagnostic is one finding against one dependency declaration.
type Diagnostic struct {
	Kind       Kind
	Manifest   string
	Span       manifest.Span // the whole declaration; orders diagnostics
	Line       int           // the most specific line to point at
	Dependency string
	Group      manifest.Group
	Message    string
	Fix        *Fix
}

// Fixable reports whether the diagnostic carries a suggested edit.
func (d Diagnostic) Fixable() bool {
	return d.Fix != nil && len(d.Fix.Edits) > 0
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.Manifest, d.Line, d.Kind, d.Message)
}

// Sort orders diagnostics by manifest path, then declaration order within
// the manifest, then lint kind. Remaining ties fall back to dependency name
// and message so the order is total.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Manifest != b.Manifest {
			return a.Manifest < b.Manifest
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Kind.rank() != b.Kind.rank() {
			return a.Kind.rank() < b.Kind.rank()
		}
		if a.Dependency != b.Dependency {
			return a.Dependency < b.Dependency
		}
		return a.Message < b.Message
	})
}

// Fixable returns the diagnostics that carry a suggested edit.
func Fixable(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Fixable() {
			out = append(out, d)
		}
	}
	return out
}
