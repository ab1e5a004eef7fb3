package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	abErrors "github.com/matzehuels/cargo-ab-lint/pkg/errors"
	"github.com/matzehuels/cargo-ab-lint/pkg/manifest"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AB_LINT_"

// FileNames are the config file names looked up next to the root manifest.
var FileNames = []string{"ab-lint.yaml", ".ab-lint.yaml", "ab-lint.yml", ".ab-lint.yml"}

func defaults() map[string]any {
	return map[string]any{
		"manifest_path": "",
		"jobs":          0,
		"check_dev":     false,
		"disable":       []string{},
		"ignore":        []string{},
		"fix":           false,
		"dry_run":       false,
		"verbose":       false,
		"watch":         false,
		"stats":         false,
	}
}

// Load resolves the workspace root and loads configuration from defaults,
// the config file, the environment and flags, in increasing precedence.
// cfgFile overrides the config file lookup. flags may be nil.
//
// The returned root is the workspace root manifest found from
// manifest_path, or from the working directory when that is unset.
func Load(cfgFile string, flags *pflag.FlagSet) (cfg *Config, root string, err error) {
	// First pass: only environment and flags can say where the workspace is.
	pre := koanf.New(".")
	if err := loadOverrides(pre, flags); err != nil {
		return nil, "", err
	}
	root, err = findRoot(pre.String("manifest_path"))
	if err != nil {
		return nil, "", err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", abErrors.Wrap(abErrors.ErrCodeInvalidConfig, err, "load defaults")
	}

	used := findConfigFile(cfgFile, filepath.Dir(root))
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", abErrors.WrapAt(abErrors.ErrCodeInvalidConfig, err, used, 0, "read config file")
		}
	}
	if err := loadOverrides(k, flags); err != nil {
		return nil, "", err
	}

	cfg = &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, "", abErrors.Wrap(abErrors.ErrCodeInvalidConfig, err, "decode config")
	}
	cfg.File = used
	cfg.Disable = splitList(cfg.Disable)
	cfg.Ignore = splitList(cfg.Ignore)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// loadOverrides loads AB_LINT_* variables, then explicitly set flags.
func loadOverrides(k *koanf.Koanf, flags *pflag.FlagSet) error {
	// AB_LINT_CHECK_DEV -> check_dev
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return abErrors.Wrap(abErrors.ErrCodeInvalidConfig, err, "load environment")
	}
	if flags == nil {
		return nil
	}
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return abErrors.Wrap(abErrors.ErrCodeInvalidConfig, err, "load flags")
	}
	return nil
}

// findConfigFile returns the explicit path, or the first known config
// file name present in dir.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findRoot locates the workspace root manifest starting at manifestPath,
// which may name a manifest or a directory, or at the working directory.
func findRoot(manifestPath string) (string, error) {
	start := "."
	if manifestPath != "" {
		info, err := os.Stat(manifestPath)
		if err != nil {
			return "", abErrors.WrapAt(abErrors.ErrCodeManifestNotFound, err, manifestPath, 0, "manifest path")
		}
		start = manifestPath
		if !info.IsDir() {
			start = filepath.Dir(manifestPath)
		}
	}
	return manifest.Discover(start)
}
