// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

type (
	// executeOutput configures where script output is directed. It abstracts
	// the difference between streaming and capturing execution.
	executeOutput struct {
		stdout io.Writer
		stderr io.Writer
	}

	// capturedOutput holds the buffers a capturing run writes to.
	capturedOutput struct {
		stdout bytes.Buffer
		stderr bytes.Buffer
	}
)

// newStreamingOutput streams to the provided writers.
func newStreamingOutput(stdout, stderr io.Writer) *executeOutput {
	return &executeOutput{stdout: stdout, stderr: stderr}
}

// newCapturingOutput captures to internal buffers.
func newCapturingOutput() (*executeOutput, *capturedOutput) {
	captured := &capturedOutput{}
	return &executeOutput{stdout: &captured.stdout, stderr: &captured.stderr}, captured
}

// extractExitCode turns the error of an exec.Cmd run into a Result.
func extractExitCode(err error, captured *capturedOutput) *Result {
	result := &Result{}
	if captured != nil {
		result.Output = captured.stdout.String()
		result.ErrOutput = captured.stderr.String()
	}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The script ran and exited non-zero.
		exitCode := ExitCode(exitErr.ExitCode())
		if exitCode < 0 {
			result.ExitCode = 1
			result.Error = fmt.Errorf("script %s", exitErr.ProcessState)
			return result
		}
		if validateErr := exitCode.Validate(); validateErr != nil {
			result.ExitCode = 1
			result.Error = validateErr
			return result
		}
		result.ExitCode = exitCode
		return result
	}

	// Some other error (e.g., shell not found, permission denied)
	result.ExitCode = 1
	result.Error = err
	return result
}
