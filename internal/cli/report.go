package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/fix"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
	"github.com/matzehuels/cargo-ab-lint/pkg/pipeline"
)

// reporter renders analysis and fix results for a terminal.
type reporter struct {
	w    io.Writer
	base string // paths are shown relative to base
}

func (r *reporter) rel(path string) string {
	return manifest.Rel(r.base, path)
}

// diagnostics prints one line per diagnostic, grouped by manifest. The
// diagnostics must already be sorted.
func (r *reporter) diagnostics(diags []lint.Diagnostic) {
	current := ""
	for _, d := range diags {
		if d.Manifest != current {
			if current != "" {
				printNewline(r.w)
			}
			current = d.Manifest
			printFile(r.w, r.rel(current))
		}
		fmt.Fprintln(r.w, r.line(d))
	}
}

// line renders "path:line: kind: message".
func (r *reporter) line(d lint.Diagnostic) string {
	style, ok := kindStyles[d.Kind]
	kind := string(d.Kind)
	if ok {
		kind = style.Render(kind)
	}
	loc := fmt.Sprintf("%s:%d:", r.rel(d.Manifest), d.Line)
	return styleLocation.Render(loc) + " " + kind + ": " + d.Message
}

func (r *reporter) failures(fs []pipeline.Failure) {
	for _, f := range fs {
		loc := r.rel(f.Path)
		if line := abErrors.LineOf(f.Err); line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, line)
		}
		printError(r.w, "%s: %s", loc, message(f.Err, f.Path))
	}
}

// message strips the location from err when it repeats path.
func message(err error, path string) string {
	msg := abErrors.UserMessage(err)
	for _, prefix := range []string{fmt.Sprintf("%s:%d: ", path, abErrors.LineOf(err)), path + ": "} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}
	return msg
}

func (r *reporter) unscanned(paths []string) {
	for _, p := range paths {
		printWarning(r.w, "%s: sources could not be read, unused dependencies not checked", r.rel(p))
	}
}

// changes prints what a fix run changed, or would change, per manifest.
func (r *reporter) changes(res *fix.Result) {
	verb := "Fixed"
	if res.DryRun {
		verb = "Would fix"
	}
	for _, c := range res.Applied {
		printSuccess(r.w, "%s %s %s", verb, StyleValue.Render(r.rel(c.Path)),
			StyleDim.Render(fmt.Sprintf("(%d %s)", c.Diagnostics, plural(c.Diagnostics, "issue", "issues"))))
		r.diff(c.Diff)
	}
	if res.DryRun && len(res.Applied) > 0 {
		printDetail(r.w, "dry run, no manifest was written")
	}
}

// diff prints a unified diff with removed lines red and added lines green.
func (r *reporter) diff(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			continue
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(r.w, "  "+styleDiffHunk.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(r.w, "  "+styleDiffRemove.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(r.w, "  "+styleDiffAdd.Render(line))
		default:
			fmt.Fprintln(r.w, "  "+StyleDim.Render(line))
		}
	}
}

// summary closes the report: a success line when nothing is left, a
// count plus a hint to --fix when fixes are available.
func (r *reporter) summary(remaining []lint.Diagnostic, failures int, fixMode bool) {
	if len(remaining) == 0 && failures == 0 {
		printSuccess(r.w, "%s", StyleSuccess.Render("All good ✔"))
		return
	}
	printNewline(r.w)
	if n := len(remaining); n > 0 {
		printInfo(r.w, "%s %s", StyleNumber.Render(fmt.Sprint(n)), plural(n, "issue", "issues"))
	}
	if failures > 0 {
		printInfo(r.w, "%s %s could not be processed", StyleNumber.Render(fmt.Sprint(failures)),
			plural(failures, "manifest", "manifests"))
	}
	if fixable := len(lint.Fixable(remaining)); fixable > 0 && !fixMode {
		printHint(r.w, "To fix run with", "--fix")
	}
}

// stats prints a table of issue counts per manifest and lint.
func (r *reporter) stats(report *pipeline.Report, diags []lint.Diagnostic) {
	counts := map[string]map[lint.Kind]int{}
	var order []string
	for _, d := range diags {
		if counts[d.Manifest] == nil {
			counts[d.Manifest] = map[lint.Kind]int{}
			order = append(order, d.Manifest)
		}
		counts[d.Manifest][d.Kind]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Manifest"}
	for _, k := range lint.Kinds {
		header = append(header, string(k))
	}
	t.AppendHeader(append(header, "Total"))

	totals := make([]int, len(lint.Kinds))
	for _, path := range order {
		row := table.Row{r.rel(path)}
		sum := 0
		for i, k := range lint.Kinds {
			n := counts[path][k]
			totals[i] += n
			sum += n
			row = append(row, n)
		}
		t.AppendRow(append(row, sum))
	}

	footer := table.Row{fmt.Sprintf("%d members, %d files", report.Stats.Members, report.Stats.Files)}
	sum := 0
	for _, n := range totals {
		footer = append(footer, n)
		sum += n
	}
	t.AppendFooter(append(footer, sum))

	printNewline(r.w)
	t.Render()
	printDetail(r.w, "analyzed in %s", report.Stats.Duration.Round(time.Millisecond))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
