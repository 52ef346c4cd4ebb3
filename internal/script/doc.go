// SPDX-License-Identifier: MPL-2.0

// Package script renders the build and test nodes of a package manifest into
// POSIX shell text. Rendering is pure: the host, install paths and
// dependencies all come from the caller, never from the process.
package script
