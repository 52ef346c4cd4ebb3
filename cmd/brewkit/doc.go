// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for brewkit.
//
// The commands are thin: each loads configuration through the App, builds
// the pantry, discoverer and resolver for the resolved host, and prints the
// result. Resolution and script generation live in internal packages.
package cmd
