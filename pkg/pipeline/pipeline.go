// Package pipeline runs the lint over a whole Cargo workspace.
//
// The pipeline has two stages:
//
//  1. Analyze: load the root manifest, then parse, scan and check every
//     member concurrently and join the results in a deterministic order
//  2. Fix: apply the fixes of an analysis and analyze again to report
//     what remains
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Options{Jobs: 4}, logger)
//	report, err := runner.Analyze(ctx, "/path/to/Cargo.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range report.Diagnostics {
//	    fmt.Println(d)
//	}
//
// Members are independent: a member that fails to parse is recorded in
// [Report.Failures] and the others are still checked. Only a root
// manifest that cannot be loaded fails the run.
package pipeline

import (
	"runtime"
	"time"

	"github.com/matzehuels/cargo-ab-lint/pkg/fix"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
)

// DefaultJobs is the number of members analyzed at once when Options.Jobs is unset.
var DefaultJobs = runtime.NumCPU()

// Options configures a Runner.
type Options struct {
	Lint lint.Config

	// Jobs bounds the number of members analyzed concurrently.
	Jobs int
}

// Failure is a manifest that could not be analyzed.
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of analyzing a workspace.
type Report struct {
	Workspace   *manifest.Workspace
	Diagnostics []lint.Diagnostic
	Failures    []Failure

	// Unscanned lists manifests whose sources could not be read; their
	// dependencies were not checked for use.
	Unscanned []string

	Stats Stats
}

// Stats holds counters and timing for one analysis.
type Stats struct {
	Members  int
	Files    int
	Duration time.Duration
}

// Fixable returns the number of diagnostics that carry a fix.
func (r *Report) Fixable() int {
	return len(lint.Fixable(r.Diagnostics))
}

// Clean reports whether the analysis found nothing to report.
func (r *Report) Clean() bool {
	return len(r.Diagnostics) == 0 && len(r.Failures) == 0
}

// FixReport is the outcome of Runner.Fix.
type FixReport struct {
	// Before is the analysis the fixes were taken from.
	Before *Report

	Result *fix.Result

	// After is the analysis of the rewritten workspace. It is nil for a
	// dry run, where nothing was written.
	After *Report
}

// Remaining returns the diagnostics still standing after the fix,
// including fix conflicts. After a dry run every diagnostic remains.
func (r *FixReport) Remaining() []lint.Diagnostic {
	base := r.Before
	if r.After != nil {
		base = r.After
	}
	out := append([]lint.Diagnostic(nil), base.Diagnostics...)
	if r.Result != nil {
		out = append(out, r.Result.Conflicts...)
	}
	lint.Sort(out)
	return out
}

// Failures returns the manifests that failed either stage.
func (r *FixReport) Failures() []Failure {
	var out []Failure
	last := r.Before
	if r.After != nil {
		last = r.After
	}
	out = append(out, last.Failures...)
	if r.Result != nil {
		for _, f := range r.Result.Failures {
			out = append(out, Failure{Path: f.Path, Err: f.Err})
		}
	}
	return out
}
