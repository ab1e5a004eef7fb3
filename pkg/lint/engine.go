package lint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
	"github.com/matzehuels/cargo-ab-lint/pkg/usage"
)

// Config selects which lints run and which dependencies they skip.
type Config struct {
	// Disabled lints are not run at all.
	Disabled []Kind

	// Ignored dependency names are exempt from every lint.
	Ignored []string

	// CheckDev extends unused-dependency to [dev-dependencies], checked
	// against tests, examples and benches as well as primary sources.
	CheckDev bool
}

// Engine runs the checks over one member crate at a time. It holds no
// mutable state and may be shared between goroutines.
type Engine struct {
	disabled map[Kind]bool
	ignored  map[string]bool
	checkDev bool
}

// NewEngine creates an engine for cfg.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		disabled: map[Kind]bool{},
		ignored:  map[string]bool{},
		checkDev: cfg.CheckDev,
	}
	for _, k := range cfg.Disabled {
		e.disabled[k] = true
	}
	for _, n := range cfg.Ignored {
		e.ignored[n] = true
	}
	return e
}

// finding is a diagnostic whose fix is still being assembled: entries to
// remove are resolved together per declaration so that removals inside
// one inline table share separators instead of overlapping.
type finding struct {
	diag    Diagnostic
	edits   []TextEdit
	remove  []*manifest.Entry
	fixable bool
}

// Check runs every enabled lint against crate c. facts may be nil or
// unknown, in which case unused-dependency is skipped for the crate.
func (e *Engine) Check(ws *manifest.Workspace, c *manifest.Crate, facts *usage.Facts) []Diagnostic {
	allow := map[string]bool{}
	for _, n := range c.Ignored {
		allow[n] = true
	}
	if ws != nil {
		for _, n := range ws.Ignored {
			allow[n] = true
		}
	}

	var out []Diagnostic
	for _, d := range c.Declarations {
		if e.ignored[d.Name] {
			continue
		}
		var found []*finding
		if wsDep, ok := ws.Dependency(d.Name); ok && d.Workspace {
			if f := e.redundantFeatures(c, d, wsDep); f != nil {
				found = append(found, f)
			}
			if f := e.redundantDefaultFeatures(d, wsDep); f != nil {
				found = append(found, f)
			}
		}
		if !allow[d.Name] {
			if f := e.unused(c, d, facts); f != nil {
				found = append(found, f)
			}
		}
		out = append(out, resolve(c.Index, found)...)
	}
	Sort(out)
	return out
}

func (e *Engine) enabled(k Kind, d *manifest.Declaration) bool {
	return !e.disabled[k] && !d.Suppress.Allows(string(k))
}

func (e *Engine) redundantFeatures(c *manifest.Crate, d, wsDep *manifest.Declaration) *finding {
	if !e.enabled(KindRedundantFeature, d) || len(d.Features) == 0 || len(wsDep.Features) == 0 {
		return nil
	}
	inherited := make(map[string]bool, len(wsDep.Features))
	for _, f := range wsDep.Features {
		inherited[f] = true
	}
	var names []string
	var drop []int
	for i, f := range d.Features {
		if inherited[f] {
			names = append(names, f)
			drop = append(drop, i)
		}
	}
	if len(names) == 0 {
		return nil
	}

	f := &finding{diag: e.diagnostic(KindRedundantFeature, d, d.FeaturesEntry,
		fmt.Sprintf("redundant %s %s for workspace %s %s",
			plural(len(names), "feature", "features"), quoteList(names), d.Group.Noun(), d.Name))}
	entry := d.FeaturesEntry
	if entry == nil || entry.Value == nil || len(entry.Value.Elements) != len(d.Features) {
		return f
	}
	f.fixable = true
	f.diag.Fix = &Fix{Description: "remove " + quoteList(names) + " from features"}
	if len(drop) == len(d.Features) {
		f.remove = []*manifest.Entry{entry}
	} else {
		f.edits = c.Index.RemoveElements(entry, drop)
	}
	return f
}

func (e *Engine) redundantDefaultFeatures(d, wsDep *manifest.Declaration) *finding {
	if !e.enabled(KindRedundantDefaultFeatures, d) || d.DefaultFeatures == nil || wsDep.DefaultFeatures == nil {
		return nil
	}
	if *d.DefaultFeatures != *wsDep.DefaultFeatures {
		return nil
	}
	value := strconv.FormatBool(*d.DefaultFeatures)
	f := &finding{diag: e.diagnostic(KindRedundantDefaultFeatures, d, d.DefaultFeaturesEntry,
		fmt.Sprintf("redundant default-features = %s for workspace %s %s", value, d.Group.Noun(), d.Name))}
	if d.DefaultFeaturesEntry != nil {
		f.fixable = true
		f.diag.Fix = &Fix{Description: "remove default-features"}
		f.remove = []*manifest.Entry{d.DefaultFeaturesEntry}
	}
	return f
}

func (e *Engine) unused(c *manifest.Crate, d *manifest.Declaration, facts *usage.Facts) *finding {
	if !e.enabled(KindUnusedDependency, d) || facts == nil || !facts.Known {
		return nil
	}
	if d.Group == manifest.Dev && !e.checkDev {
		return nil
	}
	if facts.References(d.Group, d.Name) {
		return nil
	}
	msg := fmt.Sprintf("unused %s %s", d.Group.Noun(), d.Name)
	if d.Target != "" {
		msg += " for target " + d.Target
	}
	f := &finding{diag: e.diagnostic(KindUnusedDependency, d, nil, msg)}
	if c.FeatureRefs[d.Name] {
		f.diag.Message += " (referenced from [features], remove it by hand)"
		return f
	}
	f.fixable = true
	f.diag.Fix = &Fix{Description: "remove " + d.Group.Noun() + " " + d.Name}
	f.edits = c.Index.RemoveDeclaration(d)
	return f
}

func (e *Engine) diagnostic(k Kind, d *manifest.Declaration, at *manifest.Entry, msg string) Diagnostic {
	line := d.Span.Line
	if at != nil {
		line = at.Span.Line
	}
	return Diagnostic{
		Kind:       k,
		Manifest:   d.Manifest,
		Span:       d.Span,
		Line:       line,
		Dependency: d.Name,
		Group:      d.Group,
		Message:    msg,
	}
}

// resolve finalizes the fixes of one declaration's findings. Removing the
// whole declaration supersedes every other edit to it, so those findings
// are reported without a fix.
func resolve(idx *manifest.Index, found []*finding) []Diagnostic {
	wholesale := false
	var entries []*manifest.Entry
	for _, f := range found {
		if f.diag.Kind == KindUnusedDependency && f.fixable {
			wholesale = true
		}
		entries = append(entries, f.remove...)
	}
	removed := idx.RemoveEntries(entries)

	out := make([]Diagnostic, 0, len(found))
	for _, f := range found {
		d := f.diag
		switch {
		case !f.fixable:
			d.Fix = nil
		case wholesale && d.Kind != KindUnusedDependency:
			d.Fix = nil
		default:
			d.Fix.Edits = append(append([]TextEdit(nil), f.edits...), entryEdits(removed, f.remove)...)
		}
		out = append(out, d)
	}
	return out
}

func entryEdits(removed map[*manifest.Entry]manifest.Edit, entries []*manifest.Entry) []TextEdit {
	var out []TextEdit
	seen := map[TextEdit]bool{}
	for _, e := range entries {
		ed, ok := removed[e]
		if !ok || seen[ed] {
			continue
		}
		seen[ed] = true
		out = append(out, ed)
	}
	return out
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = strconv.Quote(n)
	}
	return "[" + strings.Join(q, ", ") + "]"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
