// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/brewkit-dev/brewkit/internal/runtime"
)

const (
	// exitFailure is the generic failure exit code.
	exitFailure runtime.ExitCode = 1
	// exitUnavailable reports a package that does not build on this host.
	exitUnavailable runtime.ExitCode = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code runtime.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
