// Package usage finds which crates a Rust source tree refers to.
//
// The scan is textual. A dependency counts as used when its identifier
// appears as the first segment of a path (serde::Serialize), after use,
// or in an extern crate item. Macro-generated references and effects that
// only exist in the build graph are invisible; such dependencies need a
// suppression marker in the manifest.
package usage

import (
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
	"github.com/matzehuels/cargo-ab-lint/pkg/observability"
)

var (
	pathRe   = regexp.MustCompile(`(?:^|[^:\w])(?:::)?([A-Za-z_]\w*)\s*::`)
	useRe    = regexp.MustCompile(`\buse\s+(?:::)?([A-Za-z_]\w*)`)
	externRe = regexp.MustCompile(`\bextern\s+crate\s+([A-Za-z_]\w*)`)
)

// Facts holds the identifiers referenced by one crate's sources.
type Facts struct {
	// Known is false when the scan failed; no usage conclusion may be drawn.
	Known bool

	// Primary holds identifiers from library, binary and build script sources.
	Primary map[string]bool

	// Dev holds identifiers found only in tests, examples and benches.
	Dev map[string]bool

	// Files is the number of source files read.
	Files int
}

// Unknown returns facts for a crate whose sources could not be read.
func Unknown() *Facts {
	return &Facts{Primary: map[string]bool{}, Dev: map[string]bool{}}
}

// References reports whether a dependency of group g declared under name
// is referenced by the sources that group is checked against. Dev
// dependencies are checked against every source; normal and build
// dependencies only against primary sources.
func (f *Facts) References(g manifest.Group, name string) bool {
	id := Ident(name)
	if f.Primary[id] {
		return true
	}
	return g == manifest.Dev && f.Dev[id]
}

// Ident converts a dependency name to the identifier used in source.
func Ident(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Scan reads every source file of c and collects referenced identifiers.
// A read error aborts the scan; the returned facts are then unknown.
func Scan(ctx context.Context, c *manifest.Crate) (*Facts, error) {
	start := time.Now()
	facts, err := scan(ctx, c)
	observability.Scan().OnScanComplete(ctx, c.Path, facts.Files, time.Since(start), err)
	return facts, err
}

func scan(ctx context.Context, c *manifest.Crate) (*Facts, error) {
	facts := Unknown()
	set, err := Sources(c)
	if err != nil {
		return facts, err
	}
	read := func(files []string, into map[string]bool) error {
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return abErrors.WrapAt(abErrors.ErrCodeSourceRead, err, path, 0, "read source")
			}
			collect(data, into)
			facts.Files++
		}
		return nil
	}
	if err := read(set.Primary, facts.Primary); err != nil {
		return facts, err
	}
	if err := read(set.Dev, facts.Dev); err != nil {
		return facts, err
	}
	facts.Known = true
	return facts, nil
}

// collect adds every identifier referenced in src to into.
func collect(src []byte, into map[string]bool) {
	for _, line := range strings.Split(string(src), "\n") {
		if isLineComment(line) {
			continue
		}
		for _, re := range []*regexp.Regexp{pathRe, useRe, externRe} {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				into[m[1]] = true
			}
		}
	}
}

// isLineComment matches plain // comments; doc comments can hold doctests
// and are scanned.
func isLineComment(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") && !strings.HasPrefix(t, "///") && !strings.HasPrefix(t, "//!")
}
