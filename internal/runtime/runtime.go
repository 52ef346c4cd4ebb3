// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/brewkit-dev/brewkit/internal/config"
)

// ErrRuntimeNotAvailable is wrapped when a registered runtime cannot run on
// this host.
var ErrRuntimeNotAvailable = errors.New("runtime not available")

type (
	// ExecutionContext is everything needed to run one script.
	ExecutionContext struct {
		// Context cancels the run.
		Context context.Context
		// Script is the complete script text.
		Script string
		// Name identifies the script in errors and temp file names.
		Name string
		// WorkDir is the directory the script starts in.
		WorkDir string
		// Env is the complete environment of the script.
		Env map[string]string

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result contains the result of a script execution
	Result struct {
		// ExitCode is the script's exit status
		ExitCode ExitCode
		// Error is set when the script could not be run at all
		Error error
		// Output contains captured stdout (if captured)
		Output string
		// ErrOutput contains captured stderr (if captured)
		ErrOutput string
	}

	// Runtime runs scripts.
	Runtime interface {
		// Name returns the runtime name
		Name() string
		// Available returns whether this runtime can run on the current system
		Available() bool
		// Validate checks that the script can be run with this runtime
		Validate(ctx *ExecutionContext) error
		// Execute runs the script, streaming its output
		Execute(ctx *ExecutionContext) *Result
	}

	// CapturingRuntime is implemented by runtimes that support capturing output.
	CapturingRuntime interface {
		// ExecuteCapture runs the script and captures stdout/stderr.
		ExecuteCapture(ctx *ExecutionContext) *Result
	}

	// Registry holds the runtimes by mode.
	Registry struct {
		runtimes map[config.RuntimeMode]Runtime
	}
)

// Success returns true if the script ran and exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[config.RuntimeMode]Runtime)}
}

// NewDefaultRegistry registers the native and virtual runtimes. shell
// overrides the native runtime's bash when non-empty.
func NewDefaultRegistry(shell string) *Registry {
	r := NewRegistry()
	r.Register(config.RuntimeNative, &NativeRuntime{Shell: shell})
	r.Register(config.RuntimeVirtual, NewVirtualRuntime())
	return r
}

// Register adds a runtime to the registry
func (r *Registry) Register(mode config.RuntimeMode, rt Runtime) {
	r.runtimes[mode] = rt
}

// Get returns the runtime for mode.
func (r *Registry) Get(mode config.RuntimeMode) (Runtime, error) {
	rt, ok := r.runtimes[mode]
	if !ok {
		return nil, fmt.Errorf("runtime '%s' not registered", mode)
	}
	return rt, nil
}

// Available returns the modes whose runtime can run here, sorted.
func (r *Registry) Available() []config.RuntimeMode {
	var modes []config.RuntimeMode
	for mode, rt := range r.runtimes {
		if rt.Available() {
			modes = append(modes, mode)
		}
	}
	slices.Sort(modes)
	return modes
}

// Execute validates and runs ctx with the runtime registered for mode.
func (r *Registry) Execute(mode config.RuntimeMode, ctx *ExecutionContext) *Result {
	rt, err := r.Get(mode)
	if err != nil {
		return NewErrorResult(1, err)
	}
	if !rt.Available() {
		return NewErrorResult(1, fmt.Errorf("%w: %s", ErrRuntimeNotAvailable, rt.Name()))
	}
	if err := rt.Validate(ctx); err != nil {
		return NewErrorResult(1, err)
	}
	return rt.Execute(ctx)
}

// EnvToSlice converts env to KEY=VALUE pairs sorted by key.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

func (ctx *ExecutionContext) context() context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

func (ctx *ExecutionContext) name() string {
	if ctx.Name == "" {
		return "script"
	}
	return ctx.Name
}

func validateScript(ctx *ExecutionContext) error {
	if ctx == nil || ctx.Script == "" {
		return fmt.Errorf("script has no content to execute")
	}
	return nil
}
