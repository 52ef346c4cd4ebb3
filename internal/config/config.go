// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/issue"
	"github.com/brewkit-dev/brewkit/pkg/cueutil"
	"github.com/brewkit-dev/brewkit/pkg/platform"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "brewkit"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes per-key environment overrides (BREWKIT_HTTP_MAX_PAGES).
	EnvPrefix = "BREWKIT"
)

//go:embed config_schema.cue
var configSchema []byte

// Schema returns the embedded CUE schema for config files.
func Schema() []byte {
	return configSchema
}

// ConfigDir returns the brewkit configuration directory: ~/Library/Application
// Support on macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir(getenv func(string) string, goos string) (string, error) {
	home := getenv("HOME")
	if goos == platform.Darwin {
		if home == "" {
			return "", fmt.Errorf("failed to get home directory: HOME is not set")
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	}

	dir := getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home == "" {
			return "", fmt.Errorf("failed to get home directory: HOME is not set")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions builds a Config from defaults, the CUE file and the
// environment. It returns the config file path that was used, if any.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	getenv := opts.getenv()
	v := viper.New()
	setDefaults(v, DefaultConfig())

	resolvedPath, err := locateConfigFile(opts, getenv)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema printed by 'brewkit config schema'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	applyWellKnownEnv(v, getenv)
	if err := applyPrefixedEnv(v, getenv); err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Runtime.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Set runtime to \"native\" or \"virtual\"").
			Wrap(err).
			BuildError()
	}

	fillDirectories(&cfg, getenv, opts.goos())
	return &cfg, resolvedPath, nil
}

func locateConfigFile(opts LoadOptions, getenv func(string) string) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'brewkit config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(getenv, opts.goos()); err != nil {
			// No home directory means no config file; defaults still apply.
			return "", nil
		}
	}

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		return path, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("host.platform", d.Host.Platform)
	v.SetDefault("host.arch", d.Host.Arch)
	v.SetDefault("host.concurrency", d.Host.Concurrency)
	v.SetDefault("pantry_paths", d.PantryPaths)
	v.SetDefault("pantry_checkout", d.PantryCheckout)
	v.SetDefault("pkgx_dir", d.PkgxDir)
	v.SetDefault("data_home", d.DataHome)
	v.SetDefault("cache_home", d.CacheHome)
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("github.graphql_url", d.GitHub.GraphQLURL)
	v.SetDefault("github.credential_helper", d.GitHub.CredentialHelper)
	v.SetDefault("github.tags_cap", d.GitHub.TagsCap)
	v.SetDefault("gitlab.token", d.GitLab.Token)
	v.SetDefault("npm.registry_url", d.NPM.RegistryURL)
	v.SetDefault("transform.command", d.Transform.Command)
	v.SetDefault("transform.timeout", d.Transform.Timeout)
	v.SetDefault("transform.path", d.Transform.Path)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_pages", d.HTTP.MaxPages)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("runtime", string(d.Runtime))
}

// applyWellKnownEnv maps the variables pkgx tooling shares onto config keys.
func applyWellKnownEnv(v *viper.Viper, getenv func(string) string) {
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}

	set("github.token", getenv("GITHUB_TOKEN"))
	set("gitlab.token", getenv("GITLAB_TOKEN"))
	set("pkgx_dir", getenv("PKGX_DIR"))
	set("data_home", getenv("XDG_DATA_HOME"))
	set("cache_home", getenv("XDG_CACHE_HOME"))
	set("transform.path", getenv("PATH"))

	if pp := getenv("PKGX_PANTRY_PATH"); pp != "" {
		paths := filepath.SplitList(pp)
		v.Set("pantry_paths", paths)
		v.Set("pantry_checkout", paths[0])
	}
}

// listKeys are split when given through BREWKIT_* variables: commands on
// whitespace, paths on the list separator.
var listKeys = map[string]func(string) []string{
	"github.credential_helper": strings.Fields,
	"transform.command":        strings.Fields,
	"pantry_paths":             filepath.SplitList,
}

func applyPrefixedEnv(v *viper.Viper, getenv func(string) string) error {
	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		value := getenv(name)
		if value == "" {
			continue
		}
		if split, ok := listKeys[key]; ok {
			v.Set(key, split(value))
			continue
		}
		switch v.Get(key).(type) {
		case bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
			}
			v.Set(key, b)
		default:
			v.Set(key, value)
		}
	}
	return nil
}

// fillDirectories derives directory defaults from HOME for anything the
// config and environment left empty.
func fillDirectories(cfg *Config, getenv func(string) string, goos string) {
	home := getenv("HOME")
	if cfg.PkgxDir == "" {
		cfg.PkgxDir = filepath.Join(home, ".pkgx")
	}
	if cfg.DataHome == "" {
		if goos == platform.Darwin {
			cfg.DataHome = filepath.Join(home, "Library", "Application Support")
		} else {
			cfg.DataHome = filepath.Join(home, ".local", "share")
		}
	}
	if cfg.CacheHome == "" {
		if goos == platform.Darwin {
			cfg.CacheHome = filepath.Join(home, "Library", "Caches")
		} else {
			cfg.CacheHome = filepath.Join(home, ".cache")
		}
	}
	if len(cfg.PantryPaths) == 0 {
		cfg.PantryPaths = []string{filepath.Join(cfg.PkgxDir, "pantry")}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config file that validates against #Config.
// Secrets are redacted.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// brewkit configuration\n\n")

	if cfg.Host != (HostConfig{}) {
		sb.WriteString("host: {\n")
		if cfg.Host.Platform != "" {
			fmt.Fprintf(&sb, "\tplatform: %q\n", cfg.Host.Platform)
		}
		if cfg.Host.Arch != "" {
			fmt.Fprintf(&sb, "\tarch: %q\n", cfg.Host.Arch)
		}
		if cfg.Host.Concurrency > 0 {
			fmt.Fprintf(&sb, "\tconcurrency: %d\n", cfg.Host.Concurrency)
		}
		sb.WriteString("}\n\n")
	}

	fmt.Fprintf(&sb, "pantry_paths: %s\n", cueList(cfg.PantryPaths))
	if cfg.PantryCheckout != "" {
		fmt.Fprintf(&sb, "pantry_checkout: %q\n", cfg.PantryCheckout)
	}
	fmt.Fprintf(&sb, "pkgx_dir: %q\n", cfg.PkgxDir)
	fmt.Fprintf(&sb, "data_home: %q\n", cfg.DataHome)
	fmt.Fprintf(&sb, "cache_home: %q\n", cfg.CacheHome)

	sb.WriteString("\ngithub: {\n")
	if cfg.GitHub.Token != "" {
		sb.WriteString("\ttoken: \"<redacted>\"\n")
	}
	fmt.Fprintf(&sb, "\tapi_url: %q\n", cfg.GitHub.APIURL)
	fmt.Fprintf(&sb, "\tgraphql_url: %q\n", cfg.GitHub.GraphQLURL)
	fmt.Fprintf(&sb, "\tcredential_helper: %s\n", cueList(cfg.GitHub.CredentialHelper))
	fmt.Fprintf(&sb, "\ttags_cap: %d\n", cfg.GitHub.TagsCap)
	sb.WriteString("}\n")

	if cfg.GitLab.Token != "" {
		sb.WriteString("\ngitlab: token: \"<redacted>\"\n")
	}

	fmt.Fprintf(&sb, "\nnpm: registry_url: %q\n", cfg.NPM.RegistryURL)

	sb.WriteString("\ntransform: {\n")
	fmt.Fprintf(&sb, "\tcommand: %s\n", cueList(cfg.Transform.Command))
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Transform.Timeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\nhttp: {\n")
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.HTTP.Timeout.String())
	fmt.Fprintf(&sb, "\tmax_pages: %d\n", cfg.HTTP.MaxPages)
	if cfg.HTTP.UserAgent != "" {
		fmt.Fprintf(&sb, "\tuser_agent: %q\n", cfg.HTTP.UserAgent)
	}
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nui: verbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)
	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Document returns cfg as nested maps with durations rendered as strings and
// secrets redacted, for YAML/TOML output.
func Document(cfg *Config) map[string]any {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "<redacted>"
	}
	return map[string]any{
		"host": map[string]any{
			"platform":    cfg.Host.Platform,
			"arch":        cfg.Host.Arch,
			"concurrency": cfg.Host.Concurrency,
		},
		"pantry_paths":    cfg.PantryPaths,
		"pantry_checkout": cfg.PantryCheckout,
		"pkgx_dir":        cfg.PkgxDir,
		"data_home":       cfg.DataHome,
		"cache_home":      cfg.CacheHome,
		"github": map[string]any{
			"token":             redact(cfg.GitHub.Token),
			"api_url":           cfg.GitHub.APIURL,
			"graphql_url":       cfg.GitHub.GraphQLURL,
			"credential_helper": cfg.GitHub.CredentialHelper,
			"tags_cap":          cfg.GitHub.TagsCap,
		},
		"gitlab": map[string]any{"token": redact(cfg.GitLab.Token)},
		"npm":    map[string]any{"registry_url": cfg.NPM.RegistryURL},
		"transform": map[string]any{
			"command": cfg.Transform.Command,
			"timeout": cfg.Transform.Timeout.String(),
		},
		"http": map[string]any{
			"timeout":    cfg.HTTP.Timeout.String(),
			"max_pages":  cfg.HTTP.MaxPages,
			"user_agent": cfg.HTTP.UserAgent,
		},
		"ui":      map[string]any{"verbose": cfg.UI.Verbose},
		"runtime": string(cfg.Runtime),
	}
}
