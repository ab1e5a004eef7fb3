package manifest

import (
	"regexp"
	"sort"
	"strings"
)

// MarkerPrefix starts a suppression comment, e.g.
//
//	rand = "0.8" # ab-lint: allow(unused-dependency)
//
// or, on the line directly above a declaration:
//
//	# ab-lint: allow
//	[dependencies.rand]
const MarkerPrefix = "ab-lint:"

var markerRe = regexp.MustCompile(`ab-lint:\s*allow\b(?:\s*\(([^)]*)\))?`)

// Suppression is the set of lint kinds a declaration opts out of.
type Suppression struct {
	All   bool
	Kinds map[string]bool
}

// Allows reports whether kind is suppressed.
func (s Suppression) Allows(kind string) bool {
	return s.All || s.Kinds[kind]
}

// Empty reports whether no marker was found.
func (s Suppression) Empty() bool {
	return !s.All && len(s.Kinds) == 0
}

// List returns the suppressed kinds in sorted order, or ["all"].
func (s Suppression) List() []string {
	if s.All {
		return []string{"all"}
	}
	out := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseMarker extracts a suppression from a single comment text.
func ParseMarker(comment string) (Suppression, bool) {
	m := markerRe.FindStringSubmatch(comment)
	if m == nil {
		return Suppression{}, false
	}
	if strings.TrimSpace(m[1]) == "" {
		return Suppression{All: true}, true
	}
	s := Suppression{Kinds: map[string]bool{}}
	for _, k := range strings.Split(m[1], ",") {
		k = strings.TrimSpace(k)
		switch k {
		case "":
		case "all":
			s.All = true
		default:
			s.Kinds[k] = true
		}
	}
	return s, true
}

func (s *Suppression) merge(o Suppression) {
	if o.All {
		s.All = true
	}
	for k := range o.Kinds {
		if s.Kinds == nil {
			s.Kinds = map[string]bool{}
		}
		s.Kinds[k] = true
	}
}

// suppressionFor collects markers trailing the lines of the declaration and
// in the own-line comment block directly above its first line. A table-style
// declaration owns every line of its table; the other styles own only the
// lines of their entries, which need not be adjacent.
func suppressionFor(idx *Index, d *Declaration) Suppression {
	var out Suppression
	collect := func(cs []Comment) {
		for _, c := range cs {
			if s, ok := ParseMarker(c.Text); ok {
				out.merge(s)
			}
		}
	}
	spans := []Span{d.Span}
	if d.Header == nil && len(d.Entries) > 0 {
		spans = spans[:0]
		for _, e := range d.Entries {
			spans = append(spans, e.Span)
		}
	}
	for _, s := range spans {
		last := idx.LineOf(max(s.End-1, s.Start))
		for line := idx.LineOf(s.Start); line <= last; line++ {
			collect(idx.CommentsOn(line))
		}
	}
	collect(idx.LeadingComments(idx.LineOf(d.Span.Start)))
	return out
}
