// Package manifest reads Cargo manifests into a lint-oriented model.
//
// # Overview
//
// Two views of each manifest are kept side by side:
//
//   - a decoded view, produced by [github.com/BurntSushi/toml], which
//     validates the document and yields dependency values
//   - a positional view, the [Index], which records the byte span of every
//     header, key-value pair, array element and comment
//
// Declarations join both: their values come from the decoder, their spans
// from the index. Because spans always point into the original text, fixes
// are expressed as [Edit] values over that text and the document is never
// re-serialized.
//
// # Workspaces
//
// [Discover] walks up from a directory to the first Cargo.toml with a
// [workspace] table. [LoadWorkspace] resolves its members (globs and
// excludes included) and indexes [workspace.dependencies]:
//
//	root, _ := manifest.Discover(".")
//	ws, _ := manifest.LoadWorkspace(root)
//	for _, path := range ws.Members {
//		crate, err := manifest.ReadCrate(path)
//		...
//	}
//
// # Suppression
//
// A declaration opts out of lints with a trailing or leading comment:
//
//	rand = { workspace = true } # ab-lint: allow(unused-dependency)
package manifest
