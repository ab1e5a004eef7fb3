package usage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
)

// SourceSet lists the .rs files of a crate, split by the dependency groups
// they are checked against.
type SourceSet struct {
	Primary []string // src/**, build script, explicit lib and bin paths
	Dev     []string // tests, examples, benches; not repeated from Primary
}

// Sources enumerates the source files of c. Conventional directories that
// do not exist are skipped.
func Sources(c *manifest.Crate) (*SourceSet, error) {
	primary := newFileSet()
	if err := primary.addTree(filepath.Join(c.Dir, "src")); err != nil {
		return nil, err
	}
	t := c.Targets
	for _, p := range append([]string{t.Lib, t.BuildScript}, t.Bins...) {
		if err := primary.addTarget(c.Dir, p); err != nil {
			return nil, err
		}
	}

	dev := newFileSet()
	dev.exclude = primary.seen
	for _, d := range []string{"tests", "examples", "benches"} {
		if err := dev.addTree(filepath.Join(c.Dir, d)); err != nil {
			return nil, err
		}
	}
	var explicit []string
	explicit = append(explicit, t.Tests...)
	explicit = append(explicit, t.Examples...)
	explicit = append(explicit, t.Benches...)
	for _, p := range explicit {
		if err := dev.addTarget(c.Dir, p); err != nil {
			return nil, err
		}
	}
	return &SourceSet{Primary: primary.sorted(), Dev: dev.sorted()}, nil
}

type fileSet struct {
	seen    map[string]bool
	exclude map[string]bool
}

func newFileSet() *fileSet {
	return &fileSet{seen: map[string]bool{}}
}

func (s *fileSet) add(path string) {
	path = filepath.Clean(path)
	if !s.exclude[path] {
		s.seen[path] = true
	}
}

// addTarget adds an explicitly configured target file. A target living
// in its own directory brings that directory's modules along.
func (s *fileSet) addTarget(crateDir, rel string) error {
	if rel == "" {
		return nil
	}
	path := filepath.Join(crateDir, filepath.FromSlash(rel))
	if filepath.Dir(path) != filepath.Clean(crateDir) {
		return s.addTree(filepath.Dir(path))
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return abErrors.WrapAt(abErrors.ErrCodeSourceRead, err, path, 0, "stat source")
	}
	s.add(path)
	return nil
}

// addTree walks root for .rs files, skipping target/ and hidden directories.
func (s *fileSet) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != root && (d.Name() == "target" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".rs" {
			s.add(path)
		}
		return nil
	})
	if err != nil {
		return abErrors.WrapAt(abErrors.ErrCodeSourceRead, err, root, 0, "walk sources")
	}
	return nil
}

func (s *fileSet) sorted() []string {
	out := make([]string, 0, len(s.seen))
	for p := range s.seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
