package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo-ab-lint/internal/cli/config"
	"github.com/matzehuels/cargo-ab-lint/pkg/buildinfo"
	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
	"github.com/matzehuels/cargo-ab-lint/pkg/observability"
	"github.com/matzehuels/cargo-ab-lint/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "cargo-ab-lint"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Exit statuses.
const (
	ExitOK          = 0
	ExitIssues      = 1
	ExitInterrupted = 130 // Standard shell convention for SIGINT
)

// ErrIssues is returned when the run found something to report. The
// report itself has already been printed.
var ErrIssues = errors.New("issues found")

// ExitCode maps an error returned by the root command to an exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitIssues
	}
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for the command.
type CLI struct {
	Logger *log.Logger

	// Out receives the report; logs and the spinner go to the logger's writer.
	Out io.Writer

	errOut io.Writer
}

// New creates a new CLI instance writing the report to out and logs to errOut.
func New(out, errOut io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(errOut, level),
		Out:    out,
		errOut: errOut,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	setLevel(c.Logger, level)
}

// RootCommand creates the root cobra command.
func (c *CLI) RootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   appName,
		Short: "Lint Cargo workspace manifests for redundant and unused dependencies",
		Long: `cargo-ab-lint checks the members of a Cargo workspace for dependency
declarations that restate what [workspace.dependencies] already provides
(features, default-features) and for dependencies no source file uses.

Findings can be fixed in place with --fix; formatting and comments of the
manifests are preserved. Silence a single declaration with a comment:

  rand = "0.8" # ab-lint: allow(unused-dependency)`,
		Version:       buildinfo.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, cfgFile)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.Flags()
	flags.Bool("fix", false, "apply fixes to the manifests")
	flags.Bool("dry-run", false, "with --fix, print the changes instead of writing them")
	flags.String("manifest-path", "", "path to Cargo.toml (defaults to the workspace around the current directory)")
	flags.IntP("jobs", "j", 0, "number of members analyzed in parallel (default: number of CPUs)")
	flags.Bool("check-dev", false, "also report unused [dev-dependencies]")
	flags.StringSlice("disable", nil, "lints to skip (redundant-feature, redundant-default-features, unused-dependency)")
	flags.StringSlice("ignore", nil, "dependency names exempt from every lint")
	flags.Bool("watch", false, "re-run whenever a manifest or source file changes")
	flags.Bool("stats", false, "print a table of issue counts per manifest")
	flags.StringVar(&cfgFile, "config", "", "config file (default: ab-lint.yaml next to the workspace root)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	_ = root.RegisterFlagCompletionFunc("disable", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return kindNames(), cobra.ShellCompDirectiveNoFileComp
	})
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) run(cmd *cobra.Command, cfgFile string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, root, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Verbose {
		c.SetLogLevel(LogDebug)
	}
	ctx = withLogger(ctx, c.Logger)
	logger := loggerFromContext(ctx)
	logger.Debug("starting", "version", buildinfo.Short(), "root", root, "config", cfg.File)

	lintCfg, err := cfg.Lint()
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(pipeline.Options{Lint: lintCfg, Jobs: cfg.Jobs}, logger)
	rep := &reporter{w: c.Out, base: workingDir()}

	if cfg.Fix {
		return c.fix(ctx, runner, root, rep, cfg)
	}
	err = c.analyze(ctx, runner, root, rep, cfg)
	if !cfg.Watch {
		return err
	}
	if err != nil && !errors.Is(err, ErrIssues) {
		return err
	}

	dir := filepath.Dir(root)
	printInfo(c.Out, "Watching %s for changes %s", StyleValue.Render(rep.rel(dir)), StyleDim.Render("(Ctrl-C to stop)"))
	return watchWorkspace(ctx, dir, watchDebounce, logger, func() {
		printNewline(c.Out)
		err := c.analyze(ctx, runner, root, rep, cfg)
		if err != nil && !errors.Is(err, ErrIssues) && ctx.Err() == nil {
			printError(c.Out, "%s", abErrors.UserMessage(err))
		}
	})
}

// analyze runs a report-only pass and prints the result.
func (c *CLI) analyze(ctx context.Context, runner *pipeline.Runner, root string, rep *reporter, cfg *config.Config) error {
	prog := newProgress(loggerFromContext(ctx))
	stop := c.spin(ctx, "Checking")
	report, err := runner.Analyze(ctx, root)
	stop()
	if err != nil {
		return err
	}
	prog.done("checked workspace",
		"members", report.Stats.Members,
		"issues", len(report.Diagnostics))

	rep.diagnostics(report.Diagnostics)
	rep.failures(report.Failures)
	rep.unscanned(report.Unscanned)
	rep.summary(report.Diagnostics, len(report.Failures), false)
	if cfg.Stats {
		rep.stats(report, report.Diagnostics)
	}
	if !report.Clean() {
		return ErrIssues
	}
	return nil
}

// fix applies the available fixes and reports what is left.
func (c *CLI) fix(ctx context.Context, runner *pipeline.Runner, root string, rep *reporter, cfg *config.Config) error {
	prog := newProgress(loggerFromContext(ctx))
	stop := c.spin(ctx, "Fixing")
	out, err := runner.Fix(ctx, root, cfg.DryRun)
	stop()
	if out != nil && out.Result != nil {
		rep.changes(out.Result)
	}
	if err != nil {
		return err
	}
	prog.done("fixed workspace",
		"manifests", len(out.Result.Applied),
		"edits", out.Result.EditCount(),
		"dry_run", cfg.DryRun)

	remaining := out.Remaining()
	failures := out.Failures()
	if len(out.Result.Applied) > 0 && (len(remaining) > 0 || len(failures) > 0) {
		printNewline(c.Out)
	}
	rep.diagnostics(remaining)
	rep.failures(failures)
	last := out.Before
	if out.After != nil {
		last = out.After
	}
	rep.unscanned(last.Unscanned)
	rep.summary(remaining, len(failures), true)
	if cfg.Stats {
		rep.stats(last, remaining)
	}
	if len(remaining) > 0 || len(failures) > 0 {
		return ErrIssues
	}
	return nil
}

// spin shows a spinner with member progress while the pipeline runs, when
// stderr is a terminal and debug logs are off.
func (c *CLI) spin(ctx context.Context, message string) func() {
	f, ok := c.errOut.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) || c.Logger.GetLevel() <= LogDebug {
		return func() {}
	}
	s := newSpinner(ctx, c.errOut, message)
	prev := observability.Pipeline()
	observability.SetPipelineHooks(&memberProgress{spin: s, label: message})
	s.Start()
	return func() {
		s.Stop()
		observability.SetPipelineHooks(prev)
	}
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}

// kindNames lists the lint names accepted by --disable.
func kindNames() []string {
	out := make([]string, len(lint.Kinds))
	for i, k := range lint.Kinds {
		out[i] = string(k)
	}
	return out
}
