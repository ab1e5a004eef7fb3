// Package observability provides hooks for metrics, tracing, and logging.
//
// The linter itself only logs. Embedders that want counters or traces
// register hooks at startup and receive events about workspace analysis,
// source scanning and fix application:
//
//	observability.SetPipelineHooks(&myPipelineHooks{})
//	observability.SetFixHooks(&myFixHooks{})
//
// Libraries emit events through the accessors:
//
//	observability.Pipeline().OnMemberStart(ctx, manifest)
//	// ... analyze the member ...
//	observability.Pipeline().OnMemberComplete(ctx, manifest, diagCount, duration, err)
//
// All hooks default to no-ops. Implementations can embed the Noop types and
// override only the events they need.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from workspace analysis.
type PipelineHooks interface {
	OnAnalyzeStart(ctx context.Context, root string, members int)
	OnAnalyzeComplete(ctx context.Context, root string, diagnostics int, duration time.Duration, err error)

	// Member events are called from worker goroutines.
	OnMemberStart(ctx context.Context, manifest string)
	OnMemberComplete(ctx context.Context, manifest string, diagnostics int, duration time.Duration, err error)
}

// ScanHooks receives events from source usage scanning.
type ScanHooks interface {
	// OnScanComplete records one crate's scan. err is set when the scan
	// failed and usage is unknown for the crate.
	OnScanComplete(ctx context.Context, manifest string, files int, duration time.Duration, err error)
}

// FixHooks receives events from the fix applier.
type FixHooks interface {
	// OnFixApplied records a rewritten (or, in dry-run, previewed) manifest.
	OnFixApplied(ctx context.Context, manifest string, edits int, dryRun bool)

	// OnFixConflict records a manifest left untouched because edits overlapped.
	OnFixConflict(ctx context.Context, manifest string)

	// OnFixFailed records a manifest that could not be rewritten.
	OnFixFailed(ctx context.Context, manifest string, err error)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnAnalyzeStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnAnalyzeComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnMemberStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnMemberComplete(context.Context, string, int, time.Duration, error)  {}

type NoopScanHooks struct{}

func (NoopScanHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {}

type NoopFixHooks struct{}

func (NoopFixHooks) OnFixApplied(context.Context, string, int, bool) {}
func (NoopFixHooks) OnFixConflict(context.Context, string)           {}
func (NoopFixHooks) OnFixFailed(context.Context, string, error)      {}

// registry is replaced as a whole on every change, so readers on worker
// goroutines never see a half-updated set.
type registry struct {
	pipeline PipelineHooks
	scan     ScanHooks
	fix      FixHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(change func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		change(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(r *registry) { r.pipeline = h })
	}
}

// SetScanHooks registers scan hooks. A nil h is ignored.
func SetScanHooks(h ScanHooks) {
	if h != nil {
		update(func(r *registry) { r.scan = h })
	}
}

// SetFixHooks registers fix hooks. A nil h is ignored.
func SetFixHooks(h FixHooks) {
	if h != nil {
		update(func(r *registry) { r.fix = h })
	}
}

func Pipeline() PipelineHooks { return current.Load().pipeline }
func Scan() ScanHooks         { return current.Load().scan }
func Fix() FixHooks           { return current.Load().fix }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&registry{
		pipeline: NoopPipelineHooks{},
		scan:     NoopScanHooks{},
		fix:      NoopFixHooks{},
	})
}
