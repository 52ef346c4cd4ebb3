// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/brewkit-dev/brewkit/pkg/platform"
)

const (
	// RuntimeNative runs scripts with the host's bash.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs scripts in the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"

	// DefaultTagsCap bounds how many tags the GitHub tags listing fetches.
	DefaultTagsCap = 1000
	// DefaultMaxPages bounds every paginated REST listing.
	DefaultMaxPages = 100
)

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// RuntimeMode selects how `brewkit test` executes scripts.
	RuntimeMode string

	// Config is the fully resolved configuration passed into every core call.
	Config struct {
		Host           HostConfig      `json:"host" mapstructure:"host"`
		PantryPaths    []string        `json:"pantry_paths" mapstructure:"pantry_paths"`
		PantryCheckout string          `json:"pantry_checkout" mapstructure:"pantry_checkout"`
		PkgxDir        string          `json:"pkgx_dir" mapstructure:"pkgx_dir"`
		DataHome       string          `json:"data_home" mapstructure:"data_home"`
		CacheHome      string          `json:"cache_home" mapstructure:"cache_home"`
		GitHub         GitHubConfig    `json:"github" mapstructure:"github"`
		GitLab         GitLabConfig    `json:"gitlab" mapstructure:"gitlab"`
		NPM            NPMConfig       `json:"npm" mapstructure:"npm"`
		Transform      TransformConfig `json:"transform" mapstructure:"transform"`
		HTTP           HTTPConfig      `json:"http" mapstructure:"http"`
		UI             UIConfig        `json:"ui" mapstructure:"ui"`
		Runtime        RuntimeMode     `json:"runtime" mapstructure:"runtime"`
	}

	// HostConfig overrides host detection; empty fields are detected.
	HostConfig struct {
		Platform    string `json:"platform" mapstructure:"platform"`
		Arch        string `json:"arch" mapstructure:"arch"`
		Concurrency int    `json:"concurrency" mapstructure:"concurrency"`
	}

	GitHubConfig struct {
		Token      string `json:"token" mapstructure:"token"`
		APIURL     string `json:"api_url" mapstructure:"api_url"`
		GraphQLURL string `json:"graphql_url" mapstructure:"graphql_url"`
		// CredentialHelper is run when Token is empty; its trimmed stdout is
		// used as the token.
		CredentialHelper []string `json:"credential_helper" mapstructure:"credential_helper"`
		TagsCap          int      `json:"tags_cap" mapstructure:"tags_cap"`
	}

	GitLabConfig struct {
		Token string `json:"token" mapstructure:"token"`
	}

	NPMConfig struct {
		RegistryURL string `json:"registry_url" mapstructure:"registry_url"`
	}

	// TransformConfig describes the sandbox that evaluates manifest
	// `transform` snippets. The command reads a JavaScript program on stdin.
	TransformConfig struct {
		Command []string      `json:"command" mapstructure:"command"`
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// Path is the only PATH the sandbox sees.
		Path string `json:"path" mapstructure:"path"`
	}

	HTTPConfig struct {
		Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
		MaxPages  int           `json:"max_pages" mapstructure:"max_pages"`
		UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
	}

	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// InvalidRuntimeModeError wraps ErrInvalidConfig.
	InvalidRuntimeModeError struct {
		Value RuntimeMode
	}
)

func (e *InvalidRuntimeModeError) Error() string {
	return fmt.Sprintf("invalid runtime mode %q (valid: native, virtual)", e.Value)
}

func (e *InvalidRuntimeModeError) Unwrap() error { return ErrInvalidConfig }

// Validate returns an *InvalidRuntimeModeError for unknown modes.
func (m RuntimeMode) Validate() error {
	switch m {
	case RuntimeNative, RuntimeVirtual:
		return nil
	}
	return &InvalidRuntimeModeError{Value: m}
}

// DefaultConfig returns defaults that do not depend on the environment.
// Directory defaults are filled in by Load.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL:           "https://api.github.com",
			GraphQLURL:       "https://api.github.com/graphql",
			CredentialHelper: []string{"gh", "auth", "token"},
			TagsCap:          DefaultTagsCap,
		},
		NPM: NPMConfig{
			RegistryURL: "https://registry.npmjs.org",
		},
		Transform: TransformConfig{
			Command: []string{"deno", "run", "--quiet", "--no-prompt", "-"},
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:  60 * time.Second,
			MaxPages: DefaultMaxPages,
		},
		Runtime: RuntimeNative,
	}
}

// ResolveHost returns the configured host, detecting any field left empty.
func (c *Config) ResolveHost() (platform.Host, error) {
	h := platform.Host{
		Platform:    c.Host.Platform,
		Arch:        c.Host.Arch,
		Concurrency: c.Host.Concurrency,
	}
	if h.Platform == "" || h.Arch == "" || h.Concurrency == 0 {
		detected, err := platform.Detect()
		if err != nil && (h.Platform == "" || h.Arch == "") {
			return platform.Host{}, err
		}
		if h.Platform == "" {
			h.Platform = detected.Platform
		}
		if h.Arch == "" {
			h.Arch = detected.Arch
		}
		if h.Concurrency == 0 {
			h.Concurrency = max(detected.Concurrency, 1)
		}
	}
	return h, nil
}
