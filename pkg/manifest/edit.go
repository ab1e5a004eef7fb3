package manifest

import (
	"bytes"
	"strings"
)

// Edit replaces the bytes [Start, End) of a manifest, which must currently
// read OldText, with NewText.
type Edit struct {
	Start   int
	End     int
	OldText string
	NewText string
}

// Overlaps reports whether two edits touch a common byte. Edits are
// half-open; two insertions at the same point do not overlap, an insertion
// overlaps a removal when it falls strictly inside it.
func (e Edit) Overlaps(o Edit) bool {
	if e.Start == e.End && o.Start == o.End {
		return false
	}
	if e.Start == e.End {
		return o.Start < e.Start && e.Start < o.End
	}
	if o.Start == o.End {
		return e.Start < o.Start && o.Start < e.End
	}
	return e.Start < o.End && o.Start < e.End
}

func (x *Index) edit(start, end int, newText string) Edit {
	return Edit{Start: start, End: end, OldText: string(x.src[start:end]), NewText: newText}
}

// RemoveEntry removes a single key-value pair. See RemoveEntries.
func (x *Index) RemoveEntry(e *Entry) []Edit {
	return uniqueEdits(x.RemoveEntries([]*Entry{e}), []*Entry{e})
}

// RemoveEntries removes several key-value pairs at once and reports, per
// entry, the edit that removes it. Line-level entries take their whole
// line(s). Entries of one inline table are removed as runs so that each
// run swallows exactly the commas that separated it; entries in the same
// run share one edit.
func (x *Index) RemoveEntries(entries []*Entry) map[*Entry]Edit {
	out := map[*Entry]Edit{}
	byParent := map[*Value][]*Entry{}
	for _, e := range entries {
		if e.Parent == nil {
			out[e] = x.removeLines(e.Span.Start, e.Span.End)
			continue
		}
		byParent[e.Parent] = append(byParent[e.Parent], e)
	}
	for parent, drop := range byParent {
		remove := make([]bool, len(parent.Entries))
		for _, e := range drop {
			if i := indexOf(parent.Entries, e); i >= 0 {
				remove[i] = true
			}
		}
		spans := make([]Span, len(parent.Entries))
		for i, e := range parent.Entries {
			spans[i] = e.Span
		}
		for _, r := range x.runs(spans, remove) {
			for i := r.from; i <= r.to; i++ {
				out[parent.Entries[i]] = r.edit
			}
		}
	}
	return out
}

func uniqueEdits(m map[*Entry]Edit, order []*Entry) []Edit {
	var out []Edit
	seen := map[Edit]bool{}
	for _, e := range order {
		ed, ok := m[e]
		if !ok || seen[ed] {
			continue
		}
		seen[ed] = true
		out = append(out, ed)
	}
	return out
}

// RemoveElements removes the array elements at the given positions from the
// value of e. When nothing would remain, the entry itself is removed.
func (x *Index) RemoveElements(e *Entry, drop []int) []Edit {
	v := e.Value
	if v == nil || v.Kind != ValueArray {
		return nil
	}
	remove := make([]bool, len(v.Elements))
	kept := len(v.Elements)
	for _, i := range drop {
		if i >= 0 && i < len(remove) && !remove[i] {
			remove[i] = true
			kept--
		}
	}
	if kept == len(v.Elements) {
		return nil
	}
	if kept == 0 {
		return x.RemoveEntry(e)
	}

	spans := make([]Span, len(v.Elements))
	for i, el := range v.Elements {
		spans[i] = el.Span
	}
	var edits []Edit
	for _, r := range x.runs(spans, remove) {
		edits = append(edits, r.edit)
	}
	return edits
}

type run struct {
	from, to int
	edit     Edit
}

// runs groups consecutive removed items of a comma separated list and
// returns one edit per group. A group followed by a kept item removes up to
// the start of that item; a trailing group removes from the end of the item
// before it. Groups that sit on lines of their own are removed line-wise.
// When every item goes, the single edit covers first to last.
func (x *Index) runs(items []Span, remove []bool) []run {
	var out []run
	for i := 0; i < len(remove); {
		if !remove[i] {
			i++
			continue
		}
		j := i
		for j+1 < len(remove) && remove[j+1] {
			j++
		}
		first, last := items[i], items[j]
		var ed Edit
		switch {
		case x.ownsLines(first.Start, last.End):
			ed = x.edit(x.LineStart(first.Start), x.LineEnd(last.End), "")
		case j+1 < len(items):
			ed = x.edit(first.Start, items[j+1].Start, "")
		case i > 0:
			ed = x.edit(items[i-1].End, last.End, "")
		default:
			ed = x.edit(first.Start, last.End, "")
		}
		out = append(out, run{from: i, to: j, edit: ed})
		i = j + 1
	}
	return out
}

// ownsLines reports whether [start, end) sits on lines of its own: only
// whitespace before start, and only a comma, whitespace or a comment after end.
func (x *Index) ownsLines(start, end int) bool {
	before := x.src[x.LineStart(start):start]
	if len(bytes.TrimLeft(before, " \t")) != 0 {
		return false
	}
	after := strings.TrimLeft(string(x.src[end:x.LineEnd(end)]), " \t")
	after = strings.TrimPrefix(after, ",")
	after = strings.TrimLeft(after, " \t")
	after = strings.TrimRight(after, "\r\n")
	return after == "" || strings.HasPrefix(after, "#")
}

// RemoveDeclaration removes every line a declaration occupies, together
// with the suppression markers it owns. Markers in the comment block above
// it are removed too, so they cannot attach to the next declaration.
func (x *Index) RemoveDeclaration(d *Declaration) []Edit {
	var edits []Edit
	for _, c := range x.LeadingComments(x.LineOf(d.Span.Start)) {
		if _, ok := ParseMarker(c.Text); ok {
			edits = append(edits, x.removeLines(c.Span.Start, c.Span.End))
		}
	}
	if d.Header != nil {
		end := d.Header.Span.End
		for _, e := range d.Entries {
			end = max(end, e.Span.End)
		}
		return append(edits, x.removeLines(d.Header.Span.Start, end))
	}
	for _, e := range d.Entries {
		edits = append(edits, x.removeLines(e.Span.Start, e.Span.End))
	}
	return edits
}

// removeLines deletes the full lines spanned by [start, end), trailing
// comments included.
func (x *Index) removeLines(start, end int) Edit {
	return x.edit(x.LineStart(start), x.LineEnd(end), "")
}

func indexOf(entries []*Entry, e *Entry) int {
	for i, o := range entries {
		if o == e {
			return i
		}
	}
	return -1
}
