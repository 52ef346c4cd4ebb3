// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// NativeRuntime executes scripts with the host's bash.
type NativeRuntime struct {
	// Shell overrides the bash found on PATH.
	Shell string
}

// NewNativeRuntime creates a native runtime that uses bash from PATH.
func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{}
}

// Name returns the runtime name
func (r *NativeRuntime) Name() string {
	return "native"
}

// Available returns whether a shell can be found.
func (r *NativeRuntime) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Validate checks that there is a script to run.
func (r *NativeRuntime) Validate(ctx *ExecutionContext) error {
	return validateScript(ctx)
}

// Execute runs the script, streaming to ctx.Stdout and ctx.Stderr.
func (r *NativeRuntime) Execute(ctx *ExecutionContext) *Result {
	return r.run(ctx, newStreamingOutput(ctx.Stdout, ctx.Stderr), nil)
}

// ExecuteCapture runs the script and captures its output.
func (r *NativeRuntime) ExecuteCapture(ctx *ExecutionContext) *Result {
	out, captured := newCapturingOutput()
	return r.run(ctx, out, captured)
}

func (r *NativeRuntime) run(ctx *ExecutionContext, out *executeOutput, captured *capturedOutput) *Result {
	shell, err := r.getShell()
	if err != nil {
		return NewErrorResult(1, err)
	}

	path, cleanup, err := writeScript(ctx)
	if err != nil {
		return NewErrorResult(1, err)
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx.context(), shell, path)
	cmd.Dir = ctx.WorkDir
	// The script sees exactly ctx.Env.
	cmd.Env = EnvToSlice(ctx.Env)
	cmd.Stdin = ctx.Stdin
	cmd.Stdout = out.stdout
	cmd.Stderr = out.stderr

	slog.Debug("running script", "runtime", r.Name(), "shell", shell, "script", path, "dir", ctx.WorkDir)
	return extractExitCode(cmd.Run(), captured)
}

// getShell determines which shell to use
func (r *NativeRuntime) getShell() (string, error) {
	if r.Shell != "" {
		return r.Shell, nil
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash, nil
	}
	return "", fmt.Errorf("bash not found in PATH")
}

// writeScript stores the script in a temp file the shell can read. The
// returned cleanup removes it.
func writeScript(ctx *ExecutionContext) (path string, cleanup func(), err error) {
	tmpFile, err := os.CreateTemp("", "brewkit-"+sanitize(ctx.name())+"-*.sh")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp script file: %w", err)
	}
	cleanup = func() {
		_ = os.Remove(tmpFile.Name()) // Cleanup temp file; error non-critical
	}

	if _, err = tmpFile.WriteString(ctx.Script); err != nil {
		_ = tmpFile.Close() // Best-effort close on error path
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp script: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp script: %w", err)
	}
	if err = os.Chmod(tmpFile.Name(), 0o700); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to make temp script executable: %w", err)
	}
	return tmpFile.Name(), cleanup, nil
}

// sanitize keeps names usable inside a temp file pattern.
func sanitize(name string) string {
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
