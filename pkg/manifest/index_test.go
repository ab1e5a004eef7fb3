package manifest

import (
	"strings"
	"testing"
)

func TestIndex_LineOf(t *testing.T) {
	idx := NewIndex([]byte("a = 1\nb = 2\n\nc = 3"))

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{5, 1}, // the newline belongs to its line
		{6, 2},
		{12, 3},
		{13, 4},
		{18, 4},
	}
	for _, tt := range tests {
		if got := idx.LineOf(tt.offset); got != tt.want {
			t.Errorf("LineOf(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
	if got := idx.LineEnd(0); got != 6 {
		t.Errorf("LineEnd(0) = %d, want 6", got)
	}
	if got := idx.LineEnd(14); got != 18 {
		t.Errorf("LineEnd(14) = %d, want 18 (end of text)", got)
	}
}

func TestIndex_InlineTable(t *testing.T) {
	src := "[dependencies]\nserde = { workspace = true, features = [\"derive\", \"std\"] } # note\n"
	idx := NewIndex([]byte(src))

	e := idx.Lookup("dependencies", "serde")
	if e == nil {
		t.Fatal("Lookup(dependencies, serde) = nil")
	}
	if e.Value.Kind != ValueInlineTable {
		t.Errorf("Value.Kind = %v, want inline table", e.Value.Kind)
	}
	if got, want := idx.Text(e.Span), `serde = { workspace = true, features = ["derive", "std"] }`; got != want {
		t.Errorf("Text(entry) = %q, want %q", got, want)
	}
	if e.Span.Line != 2 {
		t.Errorf("Span.Line = %d, want 2", e.Span.Line)
	}

	f := idx.Lookup("dependencies", "serde", "features")
	if f == nil {
		t.Fatal("Lookup(features) = nil")
	}
	if f.Parent != e.Value {
		t.Error("features entry should point at its enclosing inline table")
	}
	if len(f.Value.Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2", len(f.Value.Elements))
	}
	if got := idx.Text(f.Value.Elements[1].Span); got != `"std"` {
		t.Errorf("Elements[1] = %q, want %q", got, `"std"`)
	}

	if len(idx.Comments) != 1 {
		t.Fatalf("len(Comments) = %d, want 1", len(idx.Comments))
	}
	if c := idx.Comments[0]; c.Own || c.Text != "# note" || c.Span.Line != 2 {
		t.Errorf("Comments[0] = %+v, want trailing \"# note\" on line 2", c)
	}
}

func TestIndex_HeadersAndKeys(t *testing.T) {
	src := strings.Join([]string{
		`[target.'cfg(unix)'.dependencies]`,
		`"quoted-name".workspace = true`,
		`[[bin]]`,
		`path = "src/one.rs"`,
		`[[bin]]`,
		`path = "src/two.rs" # second`,
		`[dependencies.regex]`,
		`features = [`,
		`  "unicode", # keep`,
		`  "perf",`,
		`]`,
	}, "\n")
	idx := NewIndex([]byte(src))

	if e := idx.Lookup("target", "cfg(unix)", "dependencies", "quoted-name", "workspace"); e == nil {
		t.Error("quoted dotted key under a literal-string header was not indexed")
	}
	if e := idx.Lookup("bin", "1", "path"); e == nil || idx.Text(e.Value.Span) != `"src/two.rs"` {
		t.Errorf("second [[bin]] path not indexed, got %+v", e)
	}
	if h := idx.Header("dependencies", "regex"); h == nil || h.Span.Line != 7 {
		t.Errorf("Header(dependencies, regex) = %+v, want line 7", h)
	}
	if h := idx.Header("bin"); h != nil {
		t.Error("Header should not return array-of-tables headers")
	}

	f := idx.Lookup("dependencies", "regex", "features")
	if f == nil || len(f.Value.Elements) != 2 {
		t.Fatalf("multi-line features array not indexed: %+v", f)
	}
	if f.Span.Line != 8 || idx.LineOf(f.Span.End) != 11 {
		t.Errorf("features spans lines %d..%d, want 8..11", f.Span.Line, idx.LineOf(f.Span.End))
	}
	if got := len(idx.Comments); got != 2 {
		t.Errorf("len(Comments) = %d, want 2", got)
	}
}

func TestIndex_LeadingComments(t *testing.T) {
	src := "a = 1 # trailing\n# one\n# two\nb = 2\n"
	idx := NewIndex([]byte(src))

	got := idx.LeadingComments(4)
	if len(got) != 2 {
		t.Fatalf("LeadingComments(4) = %d comments, want 2", len(got))
	}
	if got[0].Text != "# two" || got[1].Text != "# one" {
		t.Errorf("LeadingComments(4) = %q, %q; want nearest first", got[0].Text, got[1].Text)
	}
	if got := idx.LeadingComments(2); len(got) != 0 {
		t.Errorf("a trailing comment must not lead the next line, got %v", got)
	}
}

func TestIndex_Strings(t *testing.T) {
	src := "a = \"x # not a comment\"\nb = '''\nmulti\n'''\nc = \"\"\"q\"\"\"\"\n"
	idx := NewIndex([]byte(src))

	if len(idx.Comments) != 0 {
		t.Errorf("hash inside strings recorded as comment: %v", idx.Comments)
	}
	if len(idx.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(idx.Entries))
	}
	if got := idx.Text(idx.Entries[1].Value.Span); got != "'''\nmulti\n'''" {
		t.Errorf("literal multi-line string = %q", got)
	}
	if got := idx.Text(idx.Entries[2].Value.Span); got != `"""q""""` {
		t.Errorf("basic multi-line string = %q", got)
	}
}
