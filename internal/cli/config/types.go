// Package config loads cargo-ab-lint settings.
//
// Values are layered, later sources winning: built-in defaults, an
// ab-lint.yaml (or .ab-lint.yaml) next to the workspace root manifest,
// AB_LINT_* environment variables, and finally command-line flags.
//
//	# ab-lint.yaml
//	jobs: 4
//	check_dev: true
//	disable: [redundant-default-features]
//	ignore: [openssl-sys]
//	stats: true
package config

import (
	"strings"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/lint"
)

// Config holds all CLI configuration options.
type Config struct {
	ManifestPath string   `koanf:"manifest_path"`
	Jobs         int      `koanf:"jobs"`
	CheckDev     bool     `koanf:"check_dev"`
	Disable      []string `koanf:"disable"`
	Ignore       []string `koanf:"ignore"`
	Fix          bool     `koanf:"fix"`
	DryRun       bool     `koanf:"dry_run"`
	Verbose      bool     `koanf:"verbose"`
	Watch        bool     `koanf:"watch"`
	Stats        bool     `koanf:"stats"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Validate checks option values and combinations.
func (c *Config) Validate() error {
	if c.Jobs < 0 {
		return abErrors.New(abErrors.ErrCodeInvalidConfig, "jobs must not be negative, got %d", c.Jobs)
	}
	if c.DryRun && !c.Fix {
		return abErrors.New(abErrors.ErrCodeInvalidConfig, "--dry-run only applies together with --fix")
	}
	if c.Watch && c.Fix {
		return abErrors.New(abErrors.ErrCodeInvalidConfig, "--watch cannot be combined with --fix")
	}
	_, err := lint.ParseKinds(c.Disable)
	return err
}

// Lint returns the lint engine settings.
func (c *Config) Lint() (lint.Config, error) {
	disabled, err := lint.ParseKinds(c.Disable)
	if err != nil {
		return lint.Config{}, err
	}
	return lint.Config{
		Disabled: disabled,
		Ignored:  append([]string(nil), c.Ignore...),
		CheckDev: c.CheckDev,
	}, nil
}

// splitList flattens comma-separated elements, as given through the
// environment, and drops empty ones.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
