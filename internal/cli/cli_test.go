package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
)

const testRoot = `[workspace]
members = ["crates/*"]

[workspace.dependencies]
serde = { version = "1", features = ["derive"] }
rand = "0.8"
`

const testApp = `[package]
name = "app"

[dependencies]
serde = { workspace = true, features = ["derive"] }
rand = { workspace = true }
`

func setupWorkspace(t *testing.T, app string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Cargo.toml":             testRoot,
		"crates/app/Cargo.toml":  app,
		"crates/app/src/main.rs": "use serde::Deserialize;\n\nfn main() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := New(&out, &errOut, LogInfo)
	cmd := c.RootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_Report(t *testing.T) {
	dir := setupWorkspace(t, testApp)
	app := filepath.Join(dir, "crates", "app", "Cargo.toml")

	out, err := execute(t, "--manifest-path", dir)
	if !errors.Is(err, ErrIssues) {
		t.Fatalf("error = %v, want ErrIssues", err)
	}

	for _, want := range []string{
		app + ":5: redundant-feature: redundant feature [\"derive\"] for workspace dependency serde",
		app + ":6: unused-dependency: unused dependency rand",
		"2 issues",
		"Hint: To fix run with --fix",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Clean(t *testing.T) {
	dir := setupWorkspace(t, "[package]\nname = \"app\"\n\n[dependencies]\nserde = { workspace = true }\n")

	out, err := execute(t, "--manifest-path", dir)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "All good ✔") {
		t.Errorf("output = %q, want success line", out)
	}
}

func TestRun_Fix(t *testing.T) {
	dir := setupWorkspace(t, testApp)
	app := filepath.Join(dir, "crates", "app", "Cargo.toml")

	out, err := execute(t, "--manifest-path", dir, "--fix")
	if err != nil {
		t.Fatalf("error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Fixed") || !strings.Contains(out, "-rand = { workspace = true }") {
		t.Errorf("output should list the change:\n%s", out)
	}

	got, err := os.ReadFile(app)
	if err != nil {
		t.Fatal(err)
	}
	want := "[package]\nname = \"app\"\n\n[dependencies]\nserde = { workspace = true }\n"
	if string(got) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", got, want)
	}
}

func TestRun_DryRun(t *testing.T) {
	dir := setupWorkspace(t, testApp)
	app := filepath.Join(dir, "crates", "app", "Cargo.toml")

	out, err := execute(t, "--manifest-path", dir, "--fix", "--dry-run")
	if !errors.Is(err, ErrIssues) {
		t.Fatalf("error = %v, want ErrIssues", err)
	}
	for _, want := range []string{"Would fix", `+serde = { workspace = true }`, "no manifest was written"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	got, err := os.ReadFile(app)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != testApp {
		t.Errorf("dry run modified the manifest:\n%s", got)
	}
}

func TestRun_Disable(t *testing.T) {
	dir := setupWorkspace(t, testApp)

	out, err := execute(t, "--manifest-path", dir, "--disable", "unused-dependency", "--ignore", "serde")
	if err != nil {
		t.Fatalf("error = %v\n%s", err, out)
	}
}

func TestRun_Stats(t *testing.T) {
	dir := setupWorkspace(t, testApp)

	out, err := execute(t, "--manifest-path", dir, "--stats")
	if !errors.Is(err, ErrIssues) {
		t.Fatalf("error = %v, want ErrIssues", err)
	}
	for _, want := range []string{"MANIFEST", "UNUSED-DEPENDENCY", "1 MEMBERS", "analyzed in"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	dir := setupWorkspace(t, testApp)

	tests := [][]string{
		{"--manifest-path", dir, "--dry-run"},
		{"--manifest-path", dir, "--disable", "everything"},
		{"--manifest-path", dir, "--watch", "--fix"},
	}
	for _, args := range tests {
		_, err := execute(t, args...)
		if !abErrors.Is(err, abErrors.ErrCodeInvalidConfig) {
			t.Errorf("execute(%v) error = %v, want %s", args, err, abErrors.ErrCodeInvalidConfig)
		}
	}
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "cargo-ab-lint") {
		t.Error("bash completion should mention the command name")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{ErrIssues, ExitIssues},
		{fmt.Errorf("apply fixes: %w", context.Canceled), ExitInterrupted},
		{abErrors.New(abErrors.ErrCodeWorkspaceNotFound, "no workspace"), ExitIssues},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
