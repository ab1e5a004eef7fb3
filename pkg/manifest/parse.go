package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
)

// cargoFile is the subset of a Cargo manifest the linter reads.
type cargoFile struct {
	Package *struct {
		Name     string        `toml:"name"`
		Build    any           `toml:"build"`
		Metadata metadataTable `toml:"metadata"`
	} `toml:"package"`
	Workspace *struct {
		Members      []string       `toml:"members"`
		Exclude      []string       `toml:"exclude"`
		Dependencies map[string]any `toml:"dependencies"`
		Metadata     metadataTable  `toml:"metadata"`
	} `toml:"workspace"`

	Lib     *targetSpec  `toml:"lib"`
	Bin     []targetSpec `toml:"bin"`
	Test    []targetSpec `toml:"test"`
	Example []targetSpec `toml:"example"`
	Bench   []targetSpec `toml:"bench"`

	Features map[string][]string `toml:"features"`

	Dependencies          map[string]any `toml:"dependencies"`
	DevDependencies       map[string]any `toml:"dev-dependencies"`
	DevDependenciesLegacy map[string]any `toml:"dev_dependencies"`
	BuildDependencies     map[string]any `toml:"build-dependencies"`
	BuildDependenciesOld  map[string]any `toml:"build_dependencies"`

	Target map[string]platformTable `toml:"target"`
}

type metadataTable struct {
	AbLint struct {
		Ignored []string `toml:"ignored"`
	} `toml:"ab-lint"`
}

type targetSpec struct {
	Path string `toml:"path"`
}

type platformTable struct {
	Dependencies          map[string]any `toml:"dependencies"`
	DevDependencies       map[string]any `toml:"dev-dependencies"`
	DevDependenciesLegacy map[string]any `toml:"dev_dependencies"`
	BuildDependencies     map[string]any `toml:"build-dependencies"`
	BuildDependenciesOld  map[string]any `toml:"build_dependencies"`
}

// decode parses data and wraps syntax errors with the manifest path and line.
func decode(path string, data []byte) (*cargoFile, error) {
	var cargo cargoFile
	if _, err := toml.Decode(string(data), &cargo); err != nil {
		line := 0
		var perr toml.ParseError
		if errors.As(err, &perr) {
			line = perr.Position.Line
		}
		return nil, abErrors.WrapAt(abErrors.ErrCodeInvalidManifest, err, path, line, "parse manifest")
	}
	return &cargo, nil
}

// ReadCrate reads and parses the member manifest at path.
func ReadCrate(path string) (*Crate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, abErrors.WrapAt(abErrors.ErrCodeManifestNotFound, err, path, 0, "read manifest")
		}
		return nil, abErrors.WrapAt(abErrors.ErrCodeInvalidManifest, err, path, 0, "read manifest")
	}
	return ParseCrate(path, data)
}

// ParseCrate builds the crate model for the manifest text data read from path.
func ParseCrate(path string, data []byte) (*Crate, error) {
	cargo, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	idx := NewIndex(data)
	c := &Crate{
		Path:        path,
		Dir:         filepath.Dir(path),
		Source:      data,
		Index:       idx,
		FeatureRefs: featureRefs(cargo.Features),
	}
	if cargo.Package != nil {
		c.Name = cargo.Package.Name
		c.Ignored = cargo.Package.Metadata.AbLint.Ignored
	}
	c.Targets = targets(c.Dir, cargo)

	add := func(g Group, target string, tables map[string]map[string]any) error {
		for _, name := range sortedKeys(tables) {
			decls, err := declarations(path, idx, g, target, name, tables[name])
			if err != nil {
				return err
			}
			c.Declarations = append(c.Declarations, decls...)
		}
		return nil
	}

	sections := func(normal, dev, devLegacy, build, buildLegacy map[string]any) [3]map[string]map[string]any {
		return [3]map[string]map[string]any{
			Normal: {"dependencies": normal},
			Dev:    {"dev-dependencies": dev, "dev_dependencies": devLegacy},
			Build:  {"build-dependencies": build, "build_dependencies": buildLegacy},
		}
	}

	top := sections(cargo.Dependencies, cargo.DevDependencies, cargo.DevDependenciesLegacy,
		cargo.BuildDependencies, cargo.BuildDependenciesOld)
	for g, tables := range top {
		if err := add(Group(g), "", tables); err != nil {
			return nil, err
		}
	}
	for _, target := range sortedKeys(cargo.Target) {
		p := cargo.Target[target]
		per := sections(p.Dependencies, p.DevDependencies, p.DevDependenciesLegacy,
			p.BuildDependencies, p.BuildDependenciesOld)
		for g, tables := range per {
			if err := add(Group(g), target, tables); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(c.Declarations, func(i, j int) bool {
		return c.Declarations[i].Span.Start < c.Declarations[j].Span.Start
	})
	return c, nil
}

// declarations converts one decoded dependency table into declarations with spans.
func declarations(path string, idx *Index, g Group, target, tableName string, table map[string]any) ([]*Declaration, error) {
	var out []*Declaration
	for _, name := range sortedKeys(table) {
		if err := abErrors.ValidateDependencyName(name); err != nil {
			return nil, withPath(err, path)
		}
		d := &Declaration{Manifest: path, Name: name, Group: g, Target: target, Table: tableName}
		if err := fill(d, table[name]); err != nil {
			return nil, abErrors.WrapAt(abErrors.ErrCodeInvalidManifest, err, path, 0, "%s %q", g.Noun(), name)
		}
		locate(idx, d, d.Path()...)
		out = append(out, d)
	}
	return out, nil
}

// fill copies the decoded value of a dependency into d.
func fill(d *Declaration, raw any) error {
	switch v := raw.(type) {
	case string:
		d.Version = v
		return nil
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			d.Version = s
		}
		if s, ok := v["package"].(string); ok {
			d.Package = s
		}
		if b, ok := v["workspace"].(bool); ok {
			d.Workspace = b
		}
		if b, ok := v["optional"].(bool); ok {
			d.Optional = b
		}
		for _, key := range []string{"default-features", "default_features"} {
			if b, ok := v[key].(bool); ok {
				d.DefaultFeatures = &b
				break
			}
		}
		if feats, ok := v["features"].([]any); ok {
			for _, f := range feats {
				s, ok := f.(string)
				if !ok {
					return fmt.Errorf("features must be strings, got %T", f)
				}
				d.Features = append(d.Features, s)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported dependency value of type %T", raw)
	}
}

// locate attaches the span index entries found under path to d and
// determines its style.
func locate(idx *Index, d *Declaration, path ...string) {
	d.Header = idx.Header(path...)
	d.Entries = idx.Under(path...)

	switch {
	case d.Header != nil:
		d.Style = StyleTable
	case len(d.Entries) == 1 && keyEqual(d.Entries[0].Key, path):
		d.Style = StyleSimple
		if d.Entries[0].Value.Kind == ValueInlineTable {
			d.Style = StyleInline
		}
	default:
		d.Style = StyleDotted
	}

	d.Span = Span{Start: -1}
	if d.Header != nil {
		d.Span = d.Header.Span
	}
	for _, e := range d.Entries {
		if d.Span.Start < 0 || e.Span.Start < d.Span.Start {
			d.Span.Start = e.Span.Start
			d.Span.Line = e.Span.Line
		}
		if e.Span.End > d.Span.End {
			d.Span.End = e.Span.End
		}
	}
	if d.Span.Start < 0 {
		d.Span = Span{}
	}

	d.FeaturesEntry = idx.Lookup(append(clone(path), "features")...)
	d.DefaultFeaturesEntry = idx.Lookup(append(clone(path), "default-features")...)
	if d.DefaultFeaturesEntry == nil {
		d.DefaultFeaturesEntry = idx.Lookup(append(clone(path), "default_features")...)
	}
	d.Suppress = suppressionFor(idx, d)
}

// targets resolves the crate's declared source entry points.
func targets(dir string, cargo *cargoFile) Targets {
	var t Targets
	if cargo.Lib != nil {
		t.Lib = cargo.Lib.Path
	}
	collect := func(specs []targetSpec) []string {
		var out []string
		for _, s := range specs {
			if s.Path != "" {
				out = append(out, s.Path)
			}
		}
		return out
	}
	t.Bins = collect(cargo.Bin)
	t.Tests = collect(cargo.Test)
	t.Examples = collect(cargo.Example)
	t.Benches = collect(cargo.Bench)

	if cargo.Package != nil {
		switch b := cargo.Package.Build.(type) {
		case string:
			t.BuildScript = b
		case bool:
			if b {
				t.BuildScript = "build.rs"
			}
		case nil:
			if _, err := os.Stat(filepath.Join(dir, "build.rs")); err == nil {
				t.BuildScript = "build.rs"
			}
		}
	}
	return t
}

// featureRefs collects dependency names referenced by [features] values:
// "dep:name", "name/feature", "name?/feature" and plain "name".
func featureRefs(features map[string][]string) map[string]bool {
	refs := map[string]bool{}
	for _, values := range features {
		for _, v := range values {
			v = strings.TrimPrefix(v, "dep:")
			if i := strings.IndexByte(v, '/'); i >= 0 {
				v = v[:i]
			}
			v = strings.TrimSuffix(v, "?")
			if v != "" {
				refs[v] = true
			}
		}
	}
	return refs
}

func withPath(err error, path string) error {
	var e *abErrors.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
