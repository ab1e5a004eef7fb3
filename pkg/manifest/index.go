package manifest

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// Span is a half-open byte range [Start, End) into a manifest's text.
// Line is the 1-based line of Start.
type Span struct {
	Start int
	End   int
	Line  int
}

// Len returns the number of bytes covered.
func (s Span) Len() int { return s.End - s.Start }

// ValueKind classifies an indexed TOML value.
type ValueKind uint8

const (
	ValueScalar ValueKind = iota // numbers, booleans, dates
	ValueString
	ValueArray
	ValueInlineTable
)

// Value is the position of a TOML value in the text.
type Value struct {
	Kind     ValueKind
	Span     Span
	Elements []*Value // array elements
	Entries  []*Entry // inline table entries
}

// Entry is one key = value pair.
type Entry struct {
	Key     []string // full path: table header prefix + dotted key
	KeySpan Span
	Value   *Value
	Span    Span   // key start to value end
	Parent  *Value // enclosing inline table, nil for line-level entries
}

// Header is a [table] or [[array-of-tables]] line.
type Header struct {
	Key   []string
	Span  Span
	Array bool
}

// Comment is a '#' comment. Own is set when nothing but whitespace precedes it on its line.
type Comment struct {
	Span Span
	Text string
	Own  bool
}

// Index is a positional view over a manifest's text. It never owns or
// rewrites the text; every span indexes into the original bytes.
type Index struct {
	src        []byte
	lineStarts []int

	Entries  []*Entry // line-level entries in text order
	Headers  []*Header
	Comments []Comment
}

// NewIndex scans src and records the position of every table header,
// key-value pair, value and comment. src must already be valid TOML.
func NewIndex(src []byte) *Index {
	idx := &Index{src: src, lineStarts: []int{0}}
	for i, b := range src {
		if b == '\n' {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}
	s := &scanner{src: src, idx: idx, arrays: map[string]int{}}
	s.run()
	return idx
}

// Source returns the text the index was built over.
func (x *Index) Source() []byte { return x.src }

// LineOf returns the 1-based line containing offset.
func (x *Index) LineOf(offset int) int {
	return sort.SearchInts(x.lineStarts, offset+1)
}

// LineStart returns the offset of the first byte of the line containing offset.
func (x *Index) LineStart(offset int) int {
	return x.lineStarts[x.LineOf(offset)-1]
}

// LineEnd returns the offset just past the line containing offset, newline included.
func (x *Index) LineEnd(offset int) int {
	line := x.LineOf(offset)
	if line < len(x.lineStarts) {
		return x.lineStarts[line]
	}
	return len(x.src)
}

// Lookup finds the entry whose full key equals path, descending into inline tables.
func (x *Index) Lookup(path ...string) *Entry {
	for _, e := range x.Entries {
		if found := lookupIn(e, path); found != nil {
			return found
		}
	}
	return nil
}

func lookupIn(e *Entry, path []string) *Entry {
	if keyEqual(e.Key, path) {
		return e
	}
	if e.Value == nil || e.Value.Kind != ValueInlineTable || !keyHasPrefix(path, e.Key) {
		return nil
	}
	for _, child := range e.Value.Entries {
		if found := lookupIn(child, path); found != nil {
			return found
		}
	}
	return nil
}

// Under returns line-level entries whose key starts with prefix.
func (x *Index) Under(prefix ...string) []*Entry {
	var out []*Entry
	for _, e := range x.Entries {
		if keyHasPrefix(e.Key, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// Header returns the table header with exactly this key.
func (x *Index) Header(key ...string) *Header {
	for _, h := range x.Headers {
		if !h.Array && keyEqual(h.Key, key) {
			return h
		}
	}
	return nil
}

// CommentsOn returns the comments that start on the given line.
func (x *Index) CommentsOn(line int) []Comment {
	var out []Comment
	for _, c := range x.Comments {
		if c.Span.Line == line {
			out = append(out, c)
		}
	}
	return out
}

// LeadingComments returns the block of own-line comments directly above line.
func (x *Index) LeadingComments(line int) []Comment {
	var out []Comment
	for l := line - 1; l >= 1; l-- {
		cs := x.CommentsOn(l)
		if len(cs) != 1 || !cs[0].Own {
			break
		}
		out = append(out, cs[0])
	}
	return out
}

// Text returns the source bytes covered by span.
func (x *Index) Text(s Span) string {
	return string(x.src[s.Start:s.End])
}

func keyEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func keyHasPrefix(key, prefix []string) bool {
	if len(key) < len(prefix) {
		return false
	}
	return keyEqual(key[:len(prefix)], prefix)
}

// scanner walks valid TOML text recording positions. It does not validate:
// the decoder has already rejected malformed documents.
type scanner struct {
	src    []byte
	pos    int
	idx    *Index
	prefix []string
	arrays map[string]int // [[name]] occurrence counters
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		start := s.pos
		s.skipBlank()
		if s.pos >= len(s.src) {
			return
		}
		switch c := s.src[s.pos]; {
		case c == '\n' || c == '\r':
			s.pos++
		case c == '#':
			s.comment()
		case c == '[':
			s.header()
		default:
			if e := s.keyValue(s.prefix, nil); e != nil {
				s.idx.Entries = append(s.idx.Entries, e)
			}
		}
		if s.pos == start {
			s.pos++
		}
	}
}

func (s *scanner) span(start, end int) Span {
	return Span{Start: start, End: end, Line: s.idx.LineOf(start)}
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

// skipBlank skips spaces and tabs.
func (s *scanner) skipBlank() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

// skipSpace skips whitespace, newlines and comments (inside arrays).
func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		case '#':
			s.comment()
		default:
			return
		}
	}
}

func (s *scanner) comment() {
	start := s.pos
	lineStart := s.idx.LineStart(start)
	own := len(bytes.TrimLeft(s.src[lineStart:start], " \t")) == 0
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
	end := s.pos
	if end > start && s.src[end-1] == '\r' {
		end--
	}
	s.idx.Comments = append(s.idx.Comments, Comment{
		Span: s.span(start, end),
		Text: string(s.src[start:end]),
		Own:  own,
	})
}

func (s *scanner) header() {
	start := s.pos
	array := s.peek(1) == '['
	if array {
		s.pos += 2
	} else {
		s.pos++
	}
	s.skipBlank()
	key, _ := s.key()
	s.skipBlank()
	if array {
		s.pos += 2
	} else {
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	h := &Header{Key: key, Span: s.span(start, s.pos), Array: array}
	s.idx.Headers = append(s.idx.Headers, h)

	s.prefix = append([]string(nil), key...)
	if array {
		name := strings.Join(key, "\x00")
		n := s.arrays[name]
		s.arrays[name] = n + 1
		s.prefix = append(s.prefix, strconv.Itoa(n))
	}
}

// key parses a possibly dotted key and returns its parts and span.
func (s *scanner) key() ([]string, Span) {
	start := s.pos
	var parts []string
	for s.pos < len(s.src) {
		s.skipBlank()
		part, ok := s.simpleKey()
		if !ok {
			break
		}
		parts = append(parts, part)
		s.skipBlank()
		if s.peek(0) != '.' {
			break
		}
		s.pos++
	}
	end := s.pos
	for end > start && (s.src[end-1] == ' ' || s.src[end-1] == '\t') {
		end--
	}
	return parts, s.span(start, end)
}

func (s *scanner) simpleKey() (string, bool) {
	switch s.peek(0) {
	case '"':
		start := s.pos
		s.basicString()
		raw := string(s.src[start:s.pos])
		if v, err := strconv.Unquote(raw); err == nil {
			return v, true
		}
		return strings.Trim(raw, `"`), true
	case '\'':
		start := s.pos + 1
		s.literalString()
		end := s.pos - 1
		if end < start {
			end = start
		}
		return string(s.src[start:end]), true
	}
	start := s.pos
	for s.pos < len(s.src) && isBareKeyChar(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos]), s.pos > start
}

func isBareKeyChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *scanner) keyValue(prefix []string, parent *Value) *Entry {
	start := s.pos
	key, keySpan := s.key()
	if len(key) == 0 {
		s.skipLine()
		return nil
	}
	s.skipBlank()
	if s.peek(0) != '=' {
		s.skipLine()
		return nil
	}
	s.pos++
	s.skipBlank()

	full := make([]string, 0, len(prefix)+len(key))
	full = append(append(full, prefix...), key...)
	v := s.value(full)
	return &Entry{
		Key:     full,
		KeySpan: keySpan,
		Value:   v,
		Span:    s.span(start, v.Span.End),
		Parent:  parent,
	}
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) value(key []string) *Value {
	start := s.pos
	switch s.peek(0) {
	case '"':
		s.basicString()
		return &Value{Kind: ValueString, Span: s.span(start, s.pos)}
	case '\'':
		s.literalString()
		return &Value{Kind: ValueString, Span: s.span(start, s.pos)}
	case '[':
		return s.array(start, key)
	case '{':
		return s.inlineTable(start, key)
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == ',' || c == ']' || c == '}' || c == '#' || c == '\n' || c == '\r' {
			break
		}
		s.pos++
	}
	end := s.pos
	for end > start && (s.src[end-1] == ' ' || s.src[end-1] == '\t') {
		end--
	}
	return &Value{Kind: ValueScalar, Span: s.span(start, end)}
}

func (s *scanner) basicString() {
	if s.peek(1) == '"' && s.peek(2) == '"' {
		s.pos += 3
		for s.pos < len(s.src) {
			switch {
			case s.src[s.pos] == '\\':
				s.pos += 2
			case s.peek(0) == '"' && s.peek(1) == '"' && s.peek(2) == '"':
				s.pos += 3
				// up to two quotes may directly precede the closing delimiter
				for i := 0; i < 2 && s.peek(0) == '"'; i++ {
					s.pos++
				}
				return
			default:
				s.pos++
			}
		}
		s.pos = len(s.src)
		return
	}
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			s.pos++
			return
		case '\n':
			return
		default:
			s.pos++
		}
	}
	s.pos = len(s.src)
}

func (s *scanner) literalString() {
	if s.peek(1) == '\'' && s.peek(2) == '\'' {
		s.pos += 3
		for s.pos < len(s.src) {
			if s.peek(0) == '\'' && s.peek(1) == '\'' && s.peek(2) == '\'' {
				s.pos += 3
				for i := 0; i < 2 && s.peek(0) == '\''; i++ {
					s.pos++
				}
				return
			}
			s.pos++
		}
		return
	}
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++
		if c == '\'' || c == '\n' {
			return
		}
	}
}

func (s *scanner) array(start int, key []string) *Value {
	v := &Value{Kind: ValueArray}
	s.pos++
	for s.pos < len(s.src) {
		s.skipSpace()
		if s.pos >= len(s.src) {
			break
		}
		switch s.src[s.pos] {
		case ']':
			s.pos++
			v.Span = s.span(start, s.pos)
			return v
		case ',':
			s.pos++
			continue
		}
		before := s.pos
		v.Elements = append(v.Elements, s.value(key))
		if s.pos == before {
			s.pos++
		}
	}
	v.Span = s.span(start, s.pos)
	return v
}

func (s *scanner) inlineTable(start int, key []string) *Value {
	v := &Value{Kind: ValueInlineTable}
	s.pos++
	for s.pos < len(s.src) {
		s.skipSpace()
		if s.pos >= len(s.src) {
			break
		}
		switch s.src[s.pos] {
		case '}':
			s.pos++
			v.Span = s.span(start, s.pos)
			return v
		case ',':
			s.pos++
			continue
		}
		before := s.pos
		if e := s.keyValue(key, v); e != nil {
			v.Entries = append(v.Entries, e)
		}
		if s.pos == before {
			s.pos++
		}
	}
	v.Span = s.span(start, s.pos)
	return v
}
