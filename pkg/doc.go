// Package pkg provides the libraries behind cargo-ab-lint.
//
// # Overview
//
// cargo-ab-lint reads a Cargo workspace and reports member dependency
// declarations that repeat what [workspace.dependencies] already says, as
// well as dependencies no source file of the crate refers to. Fixes are
// applied to the manifest text itself, so comments and layout survive.
//
// # Architecture
//
// The data flow of one run:
//
//	Cargo.toml (root) ──► [manifest] workspace + members
//	                            │
//	              ┌─────────────┴─────────────┐
//	              ▼                           ▼
//	      [usage] source scan          [manifest] span index
//	              └─────────────┬─────────────┘
//	                            ▼
//	                  [lint] diagnostics + fixes
//	                            ▼
//	                  [fix] in-place rewrite
//
// [pipeline] runs these stages over every member concurrently and joins
// the results in a stable order.
//
// # Quick Start
//
//	root, _ := manifest.Discover(".")
//	runner := pipeline.NewRunner(pipeline.Options{}, nil)
//	report, _ := runner.Analyze(ctx, root)
//	for _, d := range report.Diagnostics {
//	    fmt.Println(d)
//	}
//
// # Main Packages
//
// [manifest] - Workspace discovery, manifest decoding and a byte-span index
// over the raw TOML text. Edits are expressed against that index.
//
// [usage] - Textual scan of a crate's sources for references to its
// dependencies.
//
// [lint] - The redundant-feature, redundant-default-features and
// unused-dependency checks, suppression markers and ordering.
//
// [fix] - Conflict detection, edit application and atomic writes.
//
// [pipeline] - Fork-join analysis over workspace members and the fix flow.
//
// [observability] - Hooks for tracing analysis and fix events.
//
// [errors] - Coded errors shared by all packages.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
//	go test ./...
//
// [manifest]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/manifest
// [usage]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/usage
// [lint]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/lint
// [fix]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/fix
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/cargo-ab-lint/pkg/buildinfo
package pkg
