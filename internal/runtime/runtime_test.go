// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/brewkit-dev/brewkit/internal/config"
)

// capturing returns every runtime under test that can run on this host.
func capturing(t *testing.T) map[string]interface {
	Runtime
	CapturingRuntime
} {
	t.Helper()
	rts := map[string]interface {
		Runtime
		CapturingRuntime
	}{
		"virtual": NewVirtualRuntime(),
	}
	if native := NewNativeRuntime(); native.Available() {
		rts["native"] = native
	}
	return rts
}

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func TestExecuteCapture(t *testing.T) {
	t.Parallel()
	requireTools(t, "mkdir", "cat")

	tests := []struct {
		name     string
		script   string
		env      map[string]string
		stdin    string
		wantOut  string
		wantErr  string
		wantCode ExitCode
	}{
		{
			name:    "echo",
			script:  "echo hello",
			wantOut: "hello\n",
		},
		{
			name:    "env",
			script:  `echo "${FOO}"`,
			env:     map[string]string{"FOO": "bar"},
			wantOut: "bar\n",
		},
		{
			name:     "exit code propagates",
			script:   "echo before\nexit 3\necho after",
			wantOut:  "before\n",
			wantCode: 3,
		},
		{
			name:     "errexit",
			script:   "set -e\nfalse\necho unreachable",
			wantCode: 1,
		},
		{
			name:     "pipefail",
			script:   "set -eo pipefail\nfalse | true\necho unreachable",
			wantCode: 1,
		},
		{
			name:    "stderr",
			script:  "echo oops >&2",
			wantErr: "oops\n",
		},
		{
			name:    "stdin",
			script:  "read -r line\necho \"got $line\"",
			stdin:   "input\n",
			wantOut: "got input\n",
		},
		{
			name:    "external commands use PATH from env",
			script:  "mkdir -p sub/dir && cd sub/dir && printf x > f && cat f",
			env:     map[string]string{"PATH": "/usr/bin:/bin"},
			wantOut: "x",
		},
	}

	for rtName, rt := range capturing(t) {
		for _, tt := range tests {
			t.Run(rtName+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				ctx := &ExecutionContext{
					Context: context.Background(),
					Script:  tt.script,
					Name:    tt.name,
					WorkDir: t.TempDir(),
					Env:     tt.env,
					Stdin:   strings.NewReader(tt.stdin),
				}
				if err := rt.Validate(ctx); err != nil {
					t.Fatalf("Validate: %v", err)
				}
				res := rt.ExecuteCapture(ctx)
				if res.Error != nil {
					t.Fatalf("unexpected error: %v", res.Error)
				}
				if res.ExitCode != tt.wantCode {
					t.Errorf("exit code = %d, want %d (stderr %q)", res.ExitCode, tt.wantCode, res.ErrOutput)
				}
				if res.Output != tt.wantOut {
					t.Errorf("stdout = %q, want %q", res.Output, tt.wantOut)
				}
				if tt.wantErr != "" && res.ErrOutput != tt.wantErr {
					t.Errorf("stderr = %q, want %q", res.ErrOutput, tt.wantErr)
				}
			})
		}
	}
}

func TestExecute_Streams(t *testing.T) {
	t.Parallel()

	for name, rt := range capturing(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			res := rt.Execute(&ExecutionContext{
				Script:  "echo out; echo err >&2; pwd",
				WorkDir: t.TempDir(),
				Stdout:  &stdout,
				Stderr:  &stderr,
			})
			if !res.Success() {
				t.Fatalf("result = %+v", res)
			}
			lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			if len(lines) != 2 || lines[0] != "out" || !filepath.IsAbs(lines[1]) {
				t.Errorf("stdout = %q", stdout.String())
			}
			if stderr.String() != "err\n" {
				t.Errorf("stderr = %q", stderr.String())
			}
		})
	}
}

func TestExecute_Cancelled(t *testing.T) {
	t.Parallel()
	requireTools(t, "sleep")

	for name, rt := range capturing(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			start := time.Now()
			res := rt.ExecuteCapture(&ExecutionContext{
				Context: ctx,
				Script:  "sleep 10",
				WorkDir: t.TempDir(),
				Env:     map[string]string{"PATH": "/usr/bin:/bin"},
			})
			if res.Success() {
				t.Fatalf("cancelled script succeeded: %+v", res)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("cancellation took %s", elapsed)
			}
		})
	}
}

func TestExecute_DoesNotInheritEnv(t *testing.T) {
	t.Setenv("BREWKIT_RUNTIME_LEAK", "leaked")

	for name, rt := range capturing(t) {
		res := rt.ExecuteCapture(&ExecutionContext{
			Script:  `echo "${BREWKIT_RUNTIME_LEAK:-clean}"`,
			WorkDir: t.TempDir(),
			Env:     map[string]string{"FOO": "bar"},
		})
		if res.Output != "clean\n" {
			t.Errorf("%s: stdout = %q, want the caller's environment hidden", name, res.Output)
		}
	}
}

func TestVirtualRuntime_ValidateSyntax(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	if err := rt.Validate(&ExecutionContext{Script: "if then fi ("}); err == nil {
		t.Error("expected syntax error")
	}
	if err := rt.Validate(&ExecutionContext{}); err == nil {
		t.Error("expected error for empty script")
	}
	res := rt.ExecuteCapture(&ExecutionContext{Script: "echo (", WorkDir: t.TempDir()})
	if res.Error == nil || res.ExitCode != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestNativeRuntime_MissingShell(t *testing.T) {
	t.Parallel()

	rt := &NativeRuntime{Shell: filepath.Join(t.TempDir(), "no-such-bash")}
	res := rt.ExecuteCapture(&ExecutionContext{Script: "echo hi", WorkDir: t.TempDir()})
	if res.Error == nil || res.ExitCode != 1 {
		t.Errorf("result = %+v", res)
	}
}

type unavailable struct{ VirtualRuntime }

func (unavailable) Available() bool { return false }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewDefaultRegistry("")
	if _, err := reg.Get(config.RuntimeVirtual); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("container"); err == nil {
		t.Error("expected error for unregistered runtime")
	}
	if got := reg.Available(); len(got) == 0 || !containsMode(got, config.RuntimeVirtual) {
		t.Errorf("Available() = %v", got)
	}

	var out bytes.Buffer
	res := reg.Execute(config.RuntimeVirtual, &ExecutionContext{Script: "echo via-registry", WorkDir: t.TempDir(), Stdout: &out})
	if !res.Success() || out.String() != "via-registry\n" {
		t.Errorf("Execute = %+v, out %q", res, out.String())
	}

	res = reg.Execute(config.RuntimeVirtual, &ExecutionContext{})
	if res.Error == nil {
		t.Error("expected validation error")
	}

	reg.Register("offline", unavailable{})
	res = reg.Execute("offline", &ExecutionContext{Script: "true"})
	if !errors.Is(res.Error, ErrRuntimeNotAvailable) {
		t.Errorf("expected ErrRuntimeNotAvailable, got %v", res.Error)
	}
}

func containsMode(modes []config.RuntimeMode, m config.RuntimeMode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}

func TestEnvToSlice(t *testing.T) {
	t.Parallel()

	got := EnvToSlice(map[string]string{"B": "2", "A": "1", "C": "x=y"})
	if diff := cmp.Diff([]string{"A=1", "B=2", "C=x=y"}, got); diff != "" {
		t.Errorf("EnvToSlice mismatch (-want +got):\n%s", diff)
	}
	if got := EnvToSlice(nil); got == nil || len(got) != 0 {
		t.Errorf("EnvToSlice(nil) = %#v, want empty non-nil", got)
	}
}
