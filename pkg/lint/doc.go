// Package lint checks member manifests against their workspace.
//
// Three checks run per dependency declaration:
//
//   - redundant-feature: the member lists features the inherited
//     workspace entry already enables.
//   - redundant-default-features: the member restates the workspace
//     entry's explicit default-features value.
//   - unused-dependency: no source file of the crate refers to the
//     dependency.
//
// Every diagnostic carries a [Fix] when its manifest text can be edited
// mechanically. Fixes of one declaration never overlap: when the whole
// declaration goes away, the finer edits are dropped.
//
// A declaration opts out with a comment marker on its line or the line
// above it:
//
//	rand = "0.8" # ab-lint: allow(unused-dependency)
package lint
