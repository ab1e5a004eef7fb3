package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
)

// Discover walks up from startDir to the first Cargo.toml declaring a
// [workspace] table, the way cargo locates a workspace root.
func Discover(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", abErrors.Wrap(abErrors.ErrCodeWorkspaceNotFound, err, "resolve start directory")
	}
	for {
		candidate := filepath.Join(dir, ManifestFile)
		data, err := os.ReadFile(candidate)
		switch {
		case err == nil:
			if declaresWorkspace(candidate, data) {
				return candidate, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", abErrors.WrapAt(abErrors.ErrCodeWorkspaceNotFound, err, candidate, 0, "read manifest")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", abErrors.New(abErrors.ErrCodeWorkspaceNotFound, "no %s with a [workspace] table found above %s", ManifestFile, startDir)
}

func declaresWorkspace(path string, data []byte) bool {
	cargo, err := decode(path, data)
	return err == nil && cargo.Workspace != nil
}

// LoadWorkspace reads the root manifest at path, resolves its members and
// indexes its [workspace.dependencies] table. Any failure here is fatal
// for the run: without the root there is nothing to compare members against.
func LoadWorkspace(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, abErrors.WrapAt(abErrors.ErrCodeWorkspaceNotFound, err, path, 0, "read workspace manifest")
	}
	return ParseWorkspace(path, data)
}

// ParseWorkspace is LoadWorkspace over already-read text.
func ParseWorkspace(path string, data []byte) (*Workspace, error) {
	cargo, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	if cargo.Workspace == nil {
		return nil, abErrors.New(abErrors.ErrCodeWorkspaceNotFound, "%s has no [workspace] table", path)
	}

	idx := NewIndex(data)
	ws := &Workspace{
		Root:         path,
		Dir:          filepath.Dir(path),
		Source:       data,
		Index:        idx,
		Dependencies: map[string]*Declaration{},
		Ignored:      cargo.Workspace.Metadata.AbLint.Ignored,
	}

	for _, name := range sortedKeys(cargo.Workspace.Dependencies) {
		if err := abErrors.ValidateDependencyName(name); err != nil {
			return nil, withPath(err, path)
		}
		d := &Declaration{Manifest: path, Name: name, Group: Normal, Table: "dependencies"}
		if err := fill(d, cargo.Workspace.Dependencies[name]); err != nil {
			return nil, abErrors.WrapAt(abErrors.ErrCodeInvalidManifest, err, path, 0, "workspace dependency %q", name)
		}
		locate(idx, d, "workspace", "dependencies", name)
		ws.Dependencies[name] = d
	}

	members, err := resolveMembers(ws.Dir, cargo.Workspace.Members, cargo.Workspace.Exclude)
	if err != nil {
		return nil, err
	}
	if cargo.Package != nil {
		members = append([]string{path}, members...)
	}
	ws.Members = dedupe(members)
	return ws, nil
}

// resolveMembers expands member globs relative to dir, drops excluded paths
// and returns the member manifest paths sorted. Like cargo, "**" matches any
// number of directories.
func resolveMembers(dir string, members, exclude []string) ([]string, error) {
	excluded := map[string]bool{}
	for _, pattern := range exclude {
		if err := abErrors.ValidateMemberPath(pattern); err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, abErrors.Wrap(abErrors.ErrCodeInvalidPath, err, "exclude pattern %q", pattern)
		}
		for _, m := range matches {
			excluded[filepath.Clean(m)] = true
		}
	}

	var out []string
	for _, pattern := range members {
		if err := abErrors.ValidateMemberPath(pattern); err != nil {
			return nil, err
		}
		full := filepath.Join(dir, filepath.FromSlash(pattern))
		if !hasGlobMeta(pattern) {
			manifest := filepath.Join(full, ManifestFile)
			if _, err := os.Stat(manifest); err != nil {
				return nil, abErrors.WrapAt(abErrors.ErrCodeManifestNotFound, err, manifest, 0, "workspace member %q", pattern)
			}
			if !excluded[filepath.Clean(full)] {
				out = append(out, manifest)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(full)
		if err != nil {
			return nil, abErrors.Wrap(abErrors.ErrCodeInvalidPath, err, "member pattern %q", pattern)
		}
		for _, m := range matches {
			if excluded[filepath.Clean(m)] {
				continue
			}
			manifest := filepath.Join(m, ManifestFile)
			if info, err := os.Stat(manifest); err == nil && !info.IsDir() {
				out = append(out, manifest)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func dedupe(paths []string) []string {
	seen := map[string]bool{}
	out := paths[:0]
	for _, p := range paths {
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Rel returns path relative to base when possible, for display.
func Rel(base, path string) string {
	if base == "" {
		return path
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// String implements fmt.Stringer for debugging output.
func (w *Workspace) String() string {
	return fmt.Sprintf("workspace %s (%d members, %d dependencies)", w.Root, len(w.Members), len(w.Dependencies))
}
