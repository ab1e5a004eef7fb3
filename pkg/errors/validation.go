package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateDependencyName validates a dependency key read from a manifest.
// Cargo accepts ASCII alphanumerics, '-' and '_'; anything else is rejected
// before the name is used to build search patterns.
func ValidateDependencyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidManifest, "dependency name cannot be empty")
	}

	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return New(ErrCodeInvalidManifest, "dependency name %q contains invalid character %q", name, r)
		}
	}

	return nil
}

// ValidateMemberPath validates a workspace member path as written in the
// root manifest. It must be relative and stay inside the workspace root.
func ValidateMemberPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "member path cannot be empty")
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "member path %q contains invalid characters", path)
		}
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "member path %q must be relative", path)
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return New(ErrCodeInvalidPath, "member path %q escapes the workspace root", path)
	}

	return nil
}
