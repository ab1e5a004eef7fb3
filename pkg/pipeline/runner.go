package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cargo-ab-lint/pkg/fix"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
	"github.com/matzehuels/cargo-ab-lint/pkg/observability"
	"github.com/matzehuels/cargo-ab-lint/pkg/usage"
)

// Runner executes the pipeline.
//
// The Runner keeps no results between calls. Multiple goroutines can
// safely use the same Runner on different workspaces.
type Runner struct {
	Logger *log.Logger
	Jobs   int

	engine *lint.Engine
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
// A non-positive Jobs falls back to DefaultJobs.
func NewRunner(opts Options, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	return &Runner{
		Logger: logger,
		Jobs:   jobs,
		engine: lint.NewEngine(opts.Lint),
	}
}

// member is one worker's share of an analysis.
type member struct {
	diags     []lint.Diagnostic
	failure   *Failure
	unscanned bool
	files     int
}

// Analyze checks every member of the workspace rooted at root. The
// returned error is non-nil only when the root manifest cannot be loaded
// or ctx ends.
func (r *Runner) Analyze(ctx context.Context, root string) (report *Report, err error) {
	start := time.Now()
	ws, err := manifest.LoadWorkspace(root)
	if err != nil {
		observability.Pipeline().OnAnalyzeComplete(ctx, root, 0, time.Since(start), err)
		return nil, err
	}
	observability.Pipeline().OnAnalyzeStart(ctx, root, len(ws.Members))
	defer func() {
		n := 0
		if report != nil {
			n = len(report.Diagnostics)
		}
		observability.Pipeline().OnAnalyzeComplete(ctx, root, n, time.Since(start), err)
	}()

	r.Logger.Debug("loaded workspace",
		"root", root,
		"members", len(ws.Members),
		"workspace_dependencies", len(ws.Dependencies))

	// Each worker owns exactly one slot; the slice is only read after Wait.
	slots := make([]member, len(ws.Members))
	g := new(errgroup.Group)
	g.SetLimit(r.Jobs)
	for i, path := range ws.Members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = r.analyzeMember(ctx, ws, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report = &Report{Workspace: ws}
	for _, m := range slots {
		report.Diagnostics = append(report.Diagnostics, m.diags...)
		if m.failure != nil {
			report.Failures = append(report.Failures, *m.failure)
		}
		report.Stats.Files += m.files
	}
	for i, m := range slots {
		if m.unscanned {
			report.Unscanned = append(report.Unscanned, ws.Members[i])
		}
	}
	lint.Sort(report.Diagnostics)
	report.Stats.Members = len(ws.Members)
	report.Stats.Duration = time.Since(start)

	r.Logger.Debug("analyzed workspace",
		"members", report.Stats.Members,
		"files", report.Stats.Files,
		"diagnostics", len(report.Diagnostics),
		"failures", len(report.Failures),
		"duration", report.Stats.Duration)
	return report, nil
}

func (r *Runner) analyzeMember(ctx context.Context, ws *manifest.Workspace, path string) (m member) {
	start := time.Now()
	observability.Pipeline().OnMemberStart(ctx, path)
	defer func() {
		var err error
		if m.failure != nil {
			err = m.failure.Err
		}
		observability.Pipeline().OnMemberComplete(ctx, path, len(m.diags), time.Since(start), err)
	}()

	rel := manifest.Rel(ws.Dir, path)
	c, err := manifest.ReadCrate(path)
	if err != nil {
		r.Logger.Warn("skipping member", "manifest", rel, "error", err)
		return member{failure: &Failure{Path: path, Err: err}}
	}

	facts, err := usage.Scan(ctx, c)
	if err != nil {
		r.Logger.Warn("could not scan sources, unused dependencies not checked",
			"manifest", rel, "error", err)
		facts = usage.Unknown()
		m.unscanned = true
	}
	m.files = facts.Files
	m.diags = r.engine.Check(ws, c, facts)

	r.Logger.Debug("checked member",
		"manifest", rel,
		"declarations", len(c.Declarations),
		"files", facts.Files,
		"diagnostics", len(m.diags),
		"duration", time.Since(start))
	return m
}

// Fix analyzes the workspace, applies every available fix and, unless
// dryRun is set, analyzes the rewritten workspace again.
func (r *Runner) Fix(ctx context.Context, root string, dryRun bool) (*FixReport, error) {
	before, err := r.Analyze(ctx, root)
	if err != nil {
		return nil, err
	}
	out := &FixReport{Before: before}

	start := time.Now()
	res, err := fix.Apply(ctx, before.Diagnostics, fix.Options{DryRun: dryRun})
	out.Result = res
	if err != nil {
		return out, fmt.Errorf("apply fixes: %w", err)
	}
	r.Logger.Debug("applied fixes",
		"manifests", len(res.Applied),
		"edits", res.EditCount(),
		"conflicts", len(res.Conflicts),
		"failures", len(res.Failures),
		"dry_run", dryRun,
		"duration", time.Since(start))

	if dryRun || len(res.Applied) == 0 {
		if !dryRun {
			out.After = before
		}
		return out, nil
	}
	after, err := r.Analyze(ctx, root)
	if err != nil {
		return out, fmt.Errorf("re-analyze: %w", err)
	}
	out.After = after
	return out, nil
}
