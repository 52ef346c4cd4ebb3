// SPDX-License-Identifier: MPL-2.0

// Package config loads brewkit's configuration using Viper with CUE as the
// file format.
//
// Sources, lowest precedence first: built-in defaults, the CUE config file
// (~/.config/brewkit/config.cue or the XDG/macOS equivalent, validated
// against config_schema.cue), the well-known environment variables pkgx
// tooling has always honored (GITHUB_TOKEN, PKGX_DIR, PKGX_PANTRY_PATH,
// XDG_*), and finally BREWKIT_<KEY> overrides.
//
// This is the only package that reads the process environment. Everything
// downstream receives an explicit *Config.
package config
