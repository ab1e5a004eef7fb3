package lint

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
	"github.com/matzehuels/cargo-ab-lint/pkg/usage"
)

const rootManifest = `[workspace]

[workspace.dependencies]
serde = { version = "1", features = ["derive"] }
tokio = { version = "1", default-features = false, features = ["rt", "macros"] }
rand = "0.8"
`

func parse(t *testing.T, member string) (*manifest.Workspace, *manifest.Crate) {
	t.Helper()
	ws, err := manifest.ParseWorkspace("/ws/Cargo.toml", []byte(rootManifest))
	require.NoError(t, err)
	c, err := manifest.ParseCrate("/ws/app/Cargo.toml", []byte(member))
	require.NoError(t, err)
	return ws, c
}

// uses returns known facts with the given identifiers referenced from primary sources.
func uses(names ...string) *usage.Facts {
	f := usage.Unknown()
	f.Known = true
	for _, n := range names {
		f.Primary[n] = true
	}
	return f
}

// applyFixes applies the edits of every fixable diagnostic, deduplicated.
func applyFixes(t *testing.T, src string, diags []Diagnostic) string {
	t.Helper()
	seen := map[TextEdit]bool{}
	var edits []TextEdit
	for _, d := range diags {
		if !d.Fixable() {
			continue
		}
		for _, e := range d.Fix.Edits {
			if !seen[e] {
				seen[e] = true
				edits = append(edits, e)
			}
		}
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start > edits[j].Start })
	for i := 1; i < len(edits); i++ {
		require.False(t, edits[i].Overlaps(edits[i-1]), "overlapping edits %+v %+v", edits[i], edits[i-1])
	}
	for _, e := range edits {
		require.Equal(t, e.OldText, src[e.Start:e.End])
		src = src[:e.Start] + e.NewText + src[e.End:]
	}
	return src
}

func kinds(diags []Diagnostic) []Kind {
	out := make([]Kind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

func TestRedundantFeature(t *testing.T) {
	member := `[package]
name = "app"

[dependencies]
serde = { workspace = true, features = ["derive"] }
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("serde"))

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, KindRedundantFeature, d.Kind)
	assert.Equal(t, "serde", d.Dependency)
	assert.Equal(t, 5, d.Line)
	assert.Contains(t, d.Message, `["derive"]`)
	require.True(t, d.Fixable())

	fixed := applyFixes(t, member, diags)
	assert.Equal(t, "[package]\nname = \"app\"\n\n[dependencies]\nserde = { workspace = true }\n", fixed)
}

func TestRedundantFeature_PartialOverlap(t *testing.T) {
	member := `[package]
name = "app"

[dependencies.tokio]
workspace = true
features = [
    "rt",      # inherited
    "fs",
    "macros",
]
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("tokio"))

	require.Len(t, diags, 1)
	assert.Equal(t, `redundant features ["rt", "macros"] for workspace dependency tokio`, diags[0].Message)
	assert.Equal(t, 6, diags[0].Line)

	fixed := applyFixes(t, member, diags)
	assert.Equal(t, `[package]
name = "app"

[dependencies.tokio]
workspace = true
features = [
    "fs",
]
`, fixed)
}

func TestRedundantFeature_NoOverlap(t *testing.T) {
	member := `[package]
name = "app"

[dependencies]
serde = { workspace = true, features = ["rc"] }
`
	ws, c := parse(t, member)
	assert.Empty(t, NewEngine(Config{}).Check(ws, c, uses("serde")))
}

func TestRedundantFeature_RequiresInheritance(t *testing.T) {
	member := `[package]
name = "app"

[dependencies]
serde = { version = "1", features = ["derive"] }
`
	ws, c := parse(t, member)
	assert.Empty(t, NewEngine(Config{}).Check(ws, c, uses("serde")),
		"a member that does not inherit the workspace entry restates nothing")
}

func TestRedundantDefaultFeatures(t *testing.T) {
	member := `[package]
name = "app"

[dependencies]
tokio = { workspace = true, default-features = false }
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("tokio"))

	require.Len(t, diags, 1)
	assert.Equal(t, KindRedundantDefaultFeatures, diags[0].Kind)
	assert.Equal(t, "redundant default-features = false for workspace dependency tokio", diags[0].Message)

	fixed := applyFixes(t, member, diags)
	assert.Equal(t, "[package]\nname = \"app\"\n\n[dependencies]\ntokio = { workspace = true }\n", fixed)
}

func TestRedundantDefaultFeatures_DifferentValueOrImplicit(t *testing.T) {
	tests := []struct {
		name   string
		member string
	}{
		{"different value", "[dependencies]\ntokio = { workspace = true, default-features = true }\n"},
		{"workspace implicit", "[dependencies]\nserde = { workspace = true, default-features = true }\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, c := parse(t, tt.member)
			assert.Empty(t, NewEngine(Config{}).Check(ws, c, uses("tokio", "serde")))
		})
	}
}

func TestBothRedundanciesInOneInlineTable(t *testing.T) {
	member := `[dependencies]
tokio = { default-features = false, features = ["rt"], workspace = true }
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("tokio"))

	assert.Equal(t, []Kind{KindRedundantFeature, KindRedundantDefaultFeatures}, kinds(diags))
	assert.Equal(t, "[dependencies]\ntokio = { workspace = true }\n", applyFixes(t, member, diags))
}

func TestUnusedDependency(t *testing.T) {
	member := `[package]
name = "app"

[dependencies]
rand = { workspace = true }
serde = { workspace = true }
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("serde"))

	require.Len(t, diags, 1)
	assert.Equal(t, KindUnusedDependency, diags[0].Kind)
	assert.Equal(t, "unused dependency rand", diags[0].Message)
	assert.Equal(t, "[package]\nname = \"app\"\n\n[dependencies]\nserde = { workspace = true }\n",
		applyFixes(t, member, diags))
}

func TestUnusedDependency_Suppressed(t *testing.T) {
	tests := []struct {
		name   string
		member string
	}{
		{"trailing marker", "[dependencies]\nrand = \"0.8\" # ab-lint: allow(unused-dependency)\n"},
		{"leading marker", "[dependencies]\n# ab-lint: allow\nrand = \"0.8\"\n"},
		{"package metadata", "[package]\nname = \"app\"\n[package.metadata.ab-lint]\nignored = [\"rand\"]\n[dependencies]\nrand = \"0.8\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, c := parse(t, tt.member)
			assert.Empty(t, NewEngine(Config{}).Check(ws, c, uses()))
		})
	}
}

func TestUnusedDependency_MarkerForOtherKind(t *testing.T) {
	member := "[dependencies]\nrand = \"0.8\" # ab-lint: allow(redundant-feature)\nserde = { workspace = true }\n"
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("serde"))

	require.Len(t, diags, 1)
	fixed := applyFixes(t, member, diags)
	assert.Equal(t, "[dependencies]\nserde = { workspace = true }\n", fixed,
		"the marker is removed with its declaration")

	// The next declaration must not inherit the removed marker.
	edited := strings.Replace(fixed, "workspace = true", `workspace = true, features = ["derive"]`, 1)
	ws, c = parse(t, edited)
	diags = NewEngine(Config{}).Check(ws, c, uses("serde"))
	require.Len(t, diags, 1)
	assert.Equal(t, KindRedundantFeature, diags[0].Kind)
}

func TestSuppression_InterleavedDottedDeclaration(t *testing.T) {
	member := `[dependencies]
serde.workspace = true
rand = "0.8" # ab-lint: allow
serde.features = ["derive"]
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses("serde"))

	require.Len(t, diags, 1)
	assert.Equal(t, KindRedundantFeature, diags[0].Kind)
	assert.Equal(t, "serde", diags[0].Dependency)
}

func TestUnusedDependency_Variants(t *testing.T) {
	member := `[package]
name = "app"

[features]
extra = ["dep:serde_json"]

[dependencies]
serde_json = { version = "1", optional = true }
fast-rand = { package = "rand", version = "0.8" }

[build-dependencies]
cc = "1"

[dev-dependencies]
proptest = "1"
`
	ws, c := parse(t, member)

	t.Run("optional is not exempt and feature reference blocks the fix", func(t *testing.T) {
		diags := NewEngine(Config{}).Check(ws, c, uses("fast_rand", "cc"))
		require.Len(t, diags, 1)
		assert.Equal(t, "serde_json", diags[0].Dependency)
		assert.False(t, diags[0].Fixable())
	})

	t.Run("renamed dependency checked under its alias", func(t *testing.T) {
		diags := NewEngine(Config{}).Check(ws, c, uses("rand", "serde_json", "cc"))
		require.Len(t, diags, 1)
		assert.Equal(t, "fast-rand", diags[0].Dependency)
	})

	t.Run("build dependencies are checked", func(t *testing.T) {
		diags := NewEngine(Config{}).Check(ws, c, uses("fast_rand", "serde_json"))
		require.Len(t, diags, 1)
		assert.Equal(t, "unused build-dependency cc", diags[0].Message)
	})

	t.Run("dev dependencies only with CheckDev", func(t *testing.T) {
		facts := uses("fast_rand", "serde_json", "cc")
		assert.Empty(t, NewEngine(Config{}).Check(ws, c, facts))

		diags := NewEngine(Config{CheckDev: true}).Check(ws, c, facts)
		require.Len(t, diags, 1)
		assert.Equal(t, "proptest", diags[0].Dependency)

		facts.Dev["proptest"] = true
		assert.Empty(t, NewEngine(Config{CheckDev: true}).Check(ws, c, facts))
	})

	t.Run("unknown usage skips the check", func(t *testing.T) {
		assert.Empty(t, NewEngine(Config{}).Check(ws, c, usage.Unknown()))
		assert.Empty(t, NewEngine(Config{}).Check(ws, c, nil))
	})
}

func TestUnusedSupersedesOtherFixes(t *testing.T) {
	member := `[dependencies]
tokio = { workspace = true, default-features = false, features = ["rt"] }
`
	ws, c := parse(t, member)
	diags := NewEngine(Config{}).Check(ws, c, uses())

	require.Equal(t, []Kind{KindRedundantFeature, KindRedundantDefaultFeatures, KindUnusedDependency}, kinds(diags))
	assert.False(t, diags[0].Fixable())
	assert.False(t, diags[1].Fixable())
	assert.True(t, diags[2].Fixable())
	assert.Equal(t, "[dependencies]\n", applyFixes(t, member, diags))
}

func TestConfig(t *testing.T) {
	member := `[dependencies]
serde = { workspace = true, features = ["derive"] }
rand = "0.8"
`
	ws, c := parse(t, member)

	diags := NewEngine(Config{Disabled: []Kind{KindRedundantFeature}}).Check(ws, c, uses("serde"))
	assert.Equal(t, []Kind{KindUnusedDependency}, kinds(diags))

	diags = NewEngine(Config{Ignored: []string{"rand", "serde"}}).Check(ws, c, uses())
	assert.Empty(t, diags)
}

func TestCheckOrdering(t *testing.T) {
	member := `[dependencies]
rand = "0.8"
tokio = { workspace = true, features = ["rt"] }

[build-dependencies]
cc = "1"
`
	ws, c := parse(t, member)
	first := NewEngine(Config{}).Check(ws, c, uses("tokio"))
	second := NewEngine(Config{}).Check(ws, c, uses("tokio"))

	require.Equal(t, first, second)
	deps := make([]string, len(first))
	for i, d := range first {
		deps[i] = d.Dependency
	}
	assert.Equal(t, []string{"rand", "tokio", "cc"}, deps)
}
