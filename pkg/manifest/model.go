package manifest

import "sort"

// ManifestFile is the conventional manifest filename.
const ManifestFile = "Cargo.toml"

// Group identifies which dependency table a declaration lives in.
type Group uint8

const (
	Normal Group = iota // [dependencies]
	Dev                 // [dev-dependencies]
	Build               // [build-dependencies]
)

// String returns the table name the group is declared under.
func (g Group) String() string {
	switch g {
	case Normal:
		return "dependencies"
	case Dev:
		return "dev-dependencies"
	case Build:
		return "build-dependencies"
	default:
		return "unknown"
	}
}

// Noun is the singular used in messages ("dependency", "dev-dependency").
func (g Group) Noun() string {
	switch g {
	case Dev:
		return "dev-dependency"
	case Build:
		return "build-dependency"
	default:
		return "dependency"
	}
}

// Style records how a declaration is written, which decides how it can be rewritten.
type Style uint8

const (
	StyleSimple Style = iota // name = "1.0"
	StyleInline              // name = { version = "1.0" }
	StyleDotted              // name.workspace = true
	StyleTable               // [dependencies.name]
)

// Declaration is one dependency entry, owned by the manifest that declares it.
//
// A member declaration and the workspace declaration of the same name are
// distinct values; they are related only by looking the name up in
// [Workspace.Dependencies].
type Declaration struct {
	Manifest string // owning manifest path
	Name     string // table key; the alias when the dependency is renamed
	Package  string // package = "..." when renamed, empty otherwise
	Version  string // opaque requirement string

	Features        []string
	DefaultFeatures *bool // nil when the key is absent
	Optional        bool
	Workspace       bool // workspace = true

	Group  Group
	Target string // cfg expression or triple for [target.X.*] tables
	Table  string // table key as written, e.g. "dev_dependencies"
	Style  Style

	// Span covers the whole declaration, header included for table style.
	Span Span

	// Header is set for table-style declarations.
	Header *Header
	// Entries are the line-level key-values that make up the declaration,
	// in text order. For simple and inline styles there is exactly one.
	Entries []*Entry

	// FeaturesEntry and DefaultFeaturesEntry point into the span index and
	// are nil when the key is absent.
	FeaturesEntry        *Entry
	DefaultFeaturesEntry *Entry

	Suppress Suppression
}

// Path returns the full key path of the declaration in its manifest.
func (d *Declaration) Path() []string {
	table := d.Table
	if table == "" {
		table = d.Group.String()
	}
	if d.Target != "" {
		return []string{"target", d.Target, table, d.Name}
	}
	return []string{table, d.Name}
}

// Crate is a parsed member manifest (a package with sources).
type Crate struct {
	Path   string // manifest path
	Dir    string // directory containing the manifest
	Name   string // package name
	Source []byte // original manifest text; all spans index into it
	Index  *Index

	Declarations []*Declaration // ordered by span start

	// Targets lists explicitly configured target source paths, relative to Dir.
	Targets Targets

	// FeatureRefs holds dependency names referenced from [features].
	FeatureRefs map[string]bool

	// Ignored comes from [package.metadata.ab-lint] ignored = [...].
	Ignored []string
}

// Targets holds the source entry points a crate declares.
type Targets struct {
	Lib         string   // [lib] path
	Bins        []string // [[bin]] paths
	Tests       []string // [[test]] paths
	Examples    []string // [[example]] paths
	Benches     []string // [[bench]] paths
	BuildScript string   // build script path, empty when disabled
}

// Group returns the declarations of one group, in declaration order.
func (c *Crate) Group(g Group) []*Declaration {
	var out []*Declaration
	for _, d := range c.Declarations {
		if d.Group == g {
			out = append(out, d)
		}
	}
	return out
}

// Workspace is the parsed root manifest.
type Workspace struct {
	Root   string // root manifest path
	Dir    string
	Source []byte
	Index  *Index

	// Members are member manifest paths in a stable order. When the root
	// manifest is itself a package it is the first member.
	Members []string

	// Dependencies are the [workspace.dependencies] declarations by name.
	Dependencies map[string]*Declaration

	// Ignored comes from [workspace.metadata.ab-lint] ignored = [...].
	Ignored []string
}

// Dependency looks up the workspace-level declaration for name.
func (w *Workspace) Dependency(name string) (*Declaration, bool) {
	if w == nil {
		return nil, false
	}
	d, ok := w.Dependencies[name]
	return d, ok
}

// DependencyNames returns the workspace dependency names in declaration order.
func (w *Workspace) DependencyNames() []string {
	names := make([]string, 0, len(w.Dependencies))
	for name := range w.Dependencies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return w.Dependencies[names[i]].Span.Start < w.Dependencies[names[j]].Span.Start
	})
	return names
}
