// Package fix applies the suggested edits of lint diagnostics to manifests.
//
// Edits are grouped per manifest. A manifest whose edits overlap is left
// untouched and reported with a fix-conflict diagnostic. Otherwise every
// edit is applied in one pass, back to front, after checking that the
// bytes still read what the analysis saw. The result replaces the file
// atomically, so a manifest is either fully rewritten or not at all.
package fix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
	"github.com/matzehuels/cargo-ab-lint/pkg/observability"
)

// Options configures Apply.
type Options struct {
	// DryRun computes the changes without writing them.
	DryRun bool
}

// FileChange describes a rewritten manifest.
type FileChange struct {
	Path        string
	Edits       int
	Diagnostics int
	Diff        string // unified diff of the change
}

// Failure is a manifest that could not be rewritten.
type Failure struct {
	Path string
	Err  error
}

// Result aggregates the outcome of Apply.
type Result struct {
	Applied   []FileChange
	Conflicts []lint.Diagnostic
	Failures  []Failure
	DryRun    bool
}

// EditCount returns the number of edits across applied files.
func (r *Result) EditCount() int {
	n := 0
	for _, c := range r.Applied {
		n += c.Edits
	}
	return n
}

// owned is an edit together with the diagnostics that asked for it.
type owned struct {
	edit   lint.TextEdit
	owners []lint.Diagnostic
}

// Apply applies the fixes of diags. Diagnostics without a fix are ignored.
// The returned error is non-nil only when ctx ends; manifests not reached
// by then are left untouched.
func Apply(ctx context.Context, diags []lint.Diagnostic, opts Options) (*Result, error) {
	res := &Result{DryRun: opts.DryRun}
	byPath := map[string][]lint.Diagnostic{}
	for _, d := range diags {
		if d.Fixable() {
			byPath[d.Manifest] = append(byPath[d.Manifest], d)
		}
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		edits := collect(byPath[path])
		if c, ok := firstConflict(edits); ok {
			res.Conflicts = append(res.Conflicts, conflict(path, c[0], c[1]))
			observability.Fix().OnFixConflict(ctx, path)
			continue
		}
		change, err := applyFile(path, edits, opts)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Err: err})
			observability.Fix().OnFixFailed(ctx, path, err)
			continue
		}
		change.Diagnostics = len(byPath[path])
		res.Applied = append(res.Applied, change)
		observability.Fix().OnFixApplied(ctx, path, change.Edits, opts.DryRun)
	}
	lint.Sort(res.Conflicts)
	return res, nil
}

// collect merges the edits of one manifest's diagnostics. Identical edits
// requested by several diagnostics are applied once.
func collect(diags []lint.Diagnostic) []*owned {
	var out []*owned
	index := map[lint.TextEdit]*owned{}
	for _, d := range diags {
		for _, e := range d.Fix.Edits {
			if o, ok := index[e]; ok {
				o.owners = append(o.owners, d)
				continue
			}
			o := &owned{edit: e, owners: []lint.Diagnostic{d}}
			index[e] = o
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].edit.Start != out[j].edit.Start {
			return out[i].edit.Start < out[j].edit.Start
		}
		return out[i].edit.End < out[j].edit.End
	})
	return out
}

func firstConflict(edits []*owned) ([2]*owned, bool) {
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if edits[i].edit.Overlaps(edits[j].edit) {
				return [2]*owned{edits[i], edits[j]}, true
			}
		}
	}
	return [2]*owned{}, false
}

func conflict(path string, a, b *owned) lint.Diagnostic {
	first := a.owners[0]
	return lint.Diagnostic{
		Kind:       lint.KindFixConflict,
		Manifest:   path,
		Span:       first.Span,
		Line:       first.Line,
		Dependency: first.Dependency,
		Group:      first.Group,
		Message: fmt.Sprintf("fixes for %s and %s overlap; %s left unchanged",
			describe(a.owners[0]), describe(b.owners[0]), filepath.Base(path)),
	}
}

func describe(d lint.Diagnostic) string {
	return fmt.Sprintf("%s (%s)", d.Dependency, d.Kind)
}

// applyFile rewrites one manifest. Nothing is written unless every edit applies.
func applyFile(path string, edits []*owned, opts Options) (FileChange, error) {
	change := FileChange{Path: path}
	src, err := os.ReadFile(path)
	if err != nil {
		return change, abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "read manifest")
	}
	out, err := Rewrite(src, unwrap(edits))
	if err != nil {
		return change, withPath(err, path)
	}
	change.Edits = len(edits)
	change.Diff = Diff(path, src, out)
	if opts.DryRun || bytes.Equal(src, out) {
		return change, nil
	}
	if err := writeAtomic(path, out); err != nil {
		return change, err
	}
	return change, nil
}

func unwrap(edits []*owned) []lint.TextEdit {
	out := make([]lint.TextEdit, len(edits))
	for i, o := range edits {
		out[i] = o.edit
	}
	return out
}

// Rewrite applies non-overlapping edits to src, last edit first so earlier
// offsets stay valid. Every edit must find its OldText in place and no two
// edits may overlap.
func Rewrite(src []byte, edits []lint.TextEdit) ([]byte, error) {
	sorted := append([]lint.TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})
	out := append([]byte(nil), src...)
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(out) {
			return nil, abErrors.New(abErrors.ErrCodeFixMismatch, "edit [%d, %d) out of range", e.Start, e.End)
		}
		if i > 0 && e.Overlaps(sorted[i-1]) {
			return nil, abErrors.New(abErrors.ErrCodeFixConflict,
				"edits at line %d and %d overlap", lineAt(src, e.Start), lineAt(src, sorted[i-1].Start))
		}
		if string(out[e.Start:e.End]) != e.OldText {
			return nil, abErrors.New(abErrors.ErrCodeFixMismatch,
				"manifest changed since analysis: expected %q at line %d", e.OldText, lineAt(out, e.Start))
		}
		suffix := append([]byte(nil), out[e.End:]...)
		out = append(append(out[:e.Start], e.NewText...), suffix...)
	}
	return out, nil
}

// Diff returns a unified diff between two versions of a manifest.
func Diff(path string, before, after []byte) string {
	if bytes.Equal(before, after) {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path,
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return text
}

// writeAtomic replaces path with data through a temporary file in the same
// directory, keeping the original permissions.
func writeAtomic(path string, data []byte) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".ab-lint-*")
	if err != nil {
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "create temporary file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "write temporary file")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "sync temporary file")
	}
	if err = tmp.Close(); err != nil {
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "close temporary file")
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "set permissions")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return abErrors.WrapAt(abErrors.ErrCodeFixWrite, err, path, 0, "replace manifest")
	}
	return nil
}

func lineAt(src []byte, offset int) int {
	offset = min(max(offset, 0), len(src))
	return strings.Count(string(src[:offset]), "\n") + 1
}

func withPath(err error, path string) error {
	var e *abErrors.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
