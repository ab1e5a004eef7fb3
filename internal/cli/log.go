// Package cli implements the cargo-ab-lint command-line interface.
//
// A single root command analyzes the Cargo workspace around the working
// directory (or --manifest-path) and prints one line per finding. With
// --fix it rewrites the manifests, with --fix --dry-run it prints the
// diff it would apply, and with --watch it re-runs on every change.
//
// # Output
//
// The report goes to stdout. Logs and the spinner go to stderr through
// charmbracelet/log, so the report can be piped. --verbose (-v) enables
// debug logs with timestamps. The logger travels in the context.
//
// # Example
//
//	c := cli.New(os.Stdout, os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(cli.ExitCode(err))
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger writing to w. Timestamps are only shown at
// debug level, where they help to follow the worker pool.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		TimeFormat: "15:04:05.00",
		Level:      level,
	})
	l.SetReportTimestamp(level <= log.DebugLevel)
	return l
}

// setLevel changes the level of l, keeping the timestamp rule of newLogger.
func setLevel(l *log.Logger, level log.Level) {
	l.SetLevel(level)
	l.SetReportTimestamp(level <= log.DebugLevel)
}

// progress logs the end of a phase with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with keyvals and an "elapsed" field.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger stored by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
