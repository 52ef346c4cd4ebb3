// SPDX-License-Identifier: MPL-2.0

package runtime

// NewErrorResult creates a Result for a script that could not be run.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewExitCodeResult creates a Result for a script that ran and exited with
// code. A failing test script is reported this way, not as an error.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}
