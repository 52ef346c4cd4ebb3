// SPDX-License-Identifier: MPL-2.0

// Package buildscript wraps generated build and test scripts in the bash
// preamble that sets up their environment.
package buildscript
