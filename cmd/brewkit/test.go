// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/brewkit-dev/brewkit/internal/buildscript"
	"github.com/brewkit-dev/brewkit/internal/config"
	"github.com/brewkit-dev/brewkit/internal/issue"
	"github.com/brewkit-dev/brewkit/internal/runtime"

	"github.com/spf13/cobra"
)

func newTestCommand(app *App) *cobra.Command {
	var (
		flags   scriptFlags
		testbed string
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "test <pkgspec>",
		Short: "Run the test script of a package",
		Long: `Render the test wrapper of a package and run it from the testbed.

The script runs with a fixed environment: PATH, PKGX_DIR and a short list
of variables such as HOME and GITHUB_TOKEN copied from the caller. A
top-level test fixture is written beside the testbed and exported as
$FIXTURE. The script's exit status becomes brewkit's.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd.Context(), app, args[0], &flags, testbed, config.RuntimeMode(mode))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&testbed, "testbed", "", "directory the test runs in (default: the package's testbed)")
	cmd.Flags().StringVar(&mode, "runtime", "", "script runtime: native or virtual (default from config)")
	return cmd
}

func runTest(ctx context.Context, app *App, arg string, flags *scriptFlags, testbed string, mode config.RuntimeMode) error {
	s, err := app.session(ctx)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = s.cfg.Runtime
	}
	if err := mode.Validate(); err != nil {
		return err
	}

	pkg, m, err := s.target(ctx, arg)
	if err != nil {
		return err
	}
	in, err := s.inputs(pkg, m, flags)
	if err != nil {
		return err
	}
	if testbed != "" {
		if in.Paths.Testbed, err = filepath.Abs(testbed); err != nil {
			return err
		}
	}

	ts, err := buildscript.Test(m, in)
	if err != nil {
		return explainManifestError(pkg.String(), err)
	}

	if err := os.MkdirAll(in.Paths.Testbed, 0o755); err != nil {
		return fmt.Errorf("failed to create testbed: %w", err)
	}
	if ts.FixturePath != "" {
		if err := os.WriteFile(ts.FixturePath, []byte(ts.Fixture), 0o644); err != nil {
			return fmt.Errorf("failed to write fixture: %w", err)
		}
	}

	slog.Debug("running test", "pkg", pkg.String(), "runtime", mode, "testbed", in.Paths.Testbed)
	registry := runtime.NewDefaultRegistry(flags.bash)
	result := registry.Execute(mode, &runtime.ExecutionContext{
		Context: ctx,
		Script:  ts.Text,
		Name:    "test-" + pkg.Project,
		WorkDir: in.Paths.Testbed,
		Env:     buildscript.TestEnv(s.cfg.PkgxDir, app.LookupEnv),
		Stdout:  app.stdout,
		Stderr:  app.stderr,
	})

	if result.Error != nil {
		code := result.ExitCode
		if code == 0 {
			code = exitFailure
		}
		return &ExitError{Code: code, Err: asServiceError(issue.NewErrorContext().
			WithOperation("run test script").
			WithResource(pkg.String()).
			WithIssue(issue.ScriptExecutionFailedId).
			Wrap(result.Error).
			BuildError())}
	}
	if !result.ExitCode.IsSuccess() {
		if result.ExitCode.IsSignal() {
			fmt.Fprintf(app.stderr, "%s %s was killed by signal %d\n", WarningStyle.Render("!"), pkg, result.ExitCode-128)
		}
		return &ExitError{
			Code: result.ExitCode,
			Err:  fmt.Errorf("test of %s failed: exit status %d", pkg, result.ExitCode),
		}
	}
	fmt.Fprintln(app.stderr, SuccessStyle.Render("✓")+" "+pkg.String()+" passed")
	return nil
}
