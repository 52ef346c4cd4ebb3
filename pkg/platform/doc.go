// SPDX-License-Identifier: MPL-2.0

// Package platform describes the host a package is built for.
//
// Platform and architecture names follow the pantry vocabulary (darwin,
// linux; aarch64, x86-64) rather than Go's GOOS/GOARCH. Detect is the only
// function that inspects the running process; everything else works on an
// explicit Host value.
package platform
