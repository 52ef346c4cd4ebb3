// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRuntime executes scripts in the embedded mvdan/sh interpreter.
// External commands still run as host processes.
type VirtualRuntime struct{}

// NewVirtualRuntime creates a new virtual runtime
func NewVirtualRuntime() *VirtualRuntime {
	return &VirtualRuntime{}
}

// Name returns the runtime name
func (r *VirtualRuntime) Name() string {
	return "virtual"
}

// Available returns whether this runtime is available
func (r *VirtualRuntime) Available() bool {
	// Virtual runtime is always available as it's built-in
	return true
}

// Validate checks the script parses.
func (r *VirtualRuntime) Validate(ctx *ExecutionContext) error {
	if err := validateScript(ctx); err != nil {
		return err
	}
	if _, err := parse(ctx); err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// Execute runs the script, streaming to ctx.Stdout and ctx.Stderr.
func (r *VirtualRuntime) Execute(ctx *ExecutionContext) *Result {
	return r.run(ctx, newStreamingOutput(ctx.Stdout, ctx.Stderr), nil)
}

// ExecuteCapture runs the script and captures its output.
func (r *VirtualRuntime) ExecuteCapture(ctx *ExecutionContext) *Result {
	out, captured := newCapturingOutput()
	return r.run(ctx, out, captured)
}

func (r *VirtualRuntime) run(ctx *ExecutionContext, out *executeOutput, captured *capturedOutput) *Result {
	prog, err := parse(ctx)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to parse script: %w", err))
	}

	runner, err := interp.New(
		interp.Dir(ctx.WorkDir),
		interp.Env(expand.ListEnviron(EnvToSlice(ctx.Env)...)),
		interp.StdIO(ctx.Stdin, out.stdout, out.stderr),
		interp.ExecHandlers(r.execHandler),
	)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	slog.Debug("running script", "runtime", r.Name(), "name", ctx.name(), "dir", ctx.WorkDir)
	err = runner.Run(ctx.context(), prog)

	result := &Result{}
	if captured != nil {
		result.Output = captured.stdout.String()
		result.ErrOutput = captured.stderr.String()
	}
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			result.ExitCode = ExitCode(exitStatus)
		} else {
			result.ExitCode = 1
			result.Error = fmt.Errorf("script execution failed: %w", err)
		}
	}
	return result
}

// execHandler logs every external command before running it.
func (r *VirtualRuntime) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		slog.Debug("exec", "args", args)
		return next(ctx, args)
	}
}

func parse(ctx *ExecutionContext) (*syntax.File, error) {
	return syntax.NewParser().Parse(strings.NewReader(ctx.Script), ctx.name())
}
