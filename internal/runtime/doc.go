// SPDX-License-Identifier: MPL-2.0

// Package runtime executes generated build and test scripts.
//
// Two runtimes are available:
//   - native: writes the script to a temp file and runs it with the host's bash
//   - virtual: runs the script in the embedded mvdan/sh interpreter
//
// Both see exactly the environment in ExecutionContext.Env; nothing is
// inherited from the calling process.
package runtime
