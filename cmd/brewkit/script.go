// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/buildscript"
	"github.com/brewkit-dev/brewkit/internal/issue"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/internal/script"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"
)

// scriptFlags are shared by `script` and `test`.
type scriptFlags struct {
	deps    []string
	bash    string
	pkgx    string
	noPkgx  bool
	libexec string
}

func (f *scriptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.deps, "dep", nil, "installed dependency as project=version:path (repeatable)")
	cmd.Flags().StringVar(&f.bash, "bash", "", "interpreter for the shebang (default /bin/bash)")
	cmd.Flags().StringVar(&f.pkgx, "pkgx", "", "pkgx executable that loads the dependency environment (default: found on PATH)")
	cmd.Flags().BoolVar(&f.noPkgx, "no-pkgx", false, "render without the pkgx dependency environment")
	cmd.Flags().StringVar(&f.libexec, "libexec", "", "directory prepended to PATH in build scripts")
}

func (f *scriptFlags) installations() ([]pkgspec.Installation, error) {
	deps := make([]pkgspec.Installation, 0, len(f.deps))
	for _, d := range f.deps {
		inst, err := splitDep(d)
		if err != nil {
			return nil, err
		}
		deps = append(deps, inst)
	}
	return deps, nil
}

func (f *scriptFlags) tools() buildscript.Tools {
	pkgx := f.pkgx
	if f.noPkgx {
		pkgx = ""
	} else if pkgx == "" {
		if found, err := exec.LookPath("pkgx"); err == nil {
			pkgx = found
		}
	}
	return buildscript.Tools{Bash: f.bash, Pkgx: pkgx, Libexec: f.libexec}
}

func newScriptCommand(app *App) *cobra.Command {
	var (
		flags scriptFlags
		wrap  bool
		check bool
	)

	cmd := &cobra.Command{
		Use:   "script <build|test> <pkgspec>",
		Short: "Print the build or test script of a package",
		Long: `Render the build or test node of a package manifest for this host and
print it.

The pkgspec is resolved against upstream versions unless it names a concrete
version as project=version. Installed dependencies given with --dep back the
{{deps.<project>.*}} tokens.

--wrap prints the complete bash file brewkit runs: environment preamble,
compiler flags and the working directory setup around the script.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(script.Build), string(script.Test)},
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := script.Phase(args[0])
			if phase != script.Build && phase != script.Test {
				return fmt.Errorf("unknown phase %q (valid: build, test)", args[0])
			}
			return runScript(cmd.Context(), app, phase, args[1], &flags, wrap, check)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&wrap, "wrap", false, "print the complete wrapper script")
	cmd.Flags().BoolVar(&check, "check", false, "fail unless the rendered script parses as bash")
	return cmd
}

func runScript(ctx context.Context, app *App, phase script.Phase, arg string, flags *scriptFlags, wrap, check bool) error {
	s, err := app.session(ctx)
	if err != nil {
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

	var text string
	switch {
	case wrap && phase == script.Build:
		text, err = buildscript.Build(m, in)
	case wrap:
		var ts buildscript.TestScript
		ts, err = buildscript.Test(m, in)
		text = ts.Text
	default:
		text, err = script.GetScript(m, pkg, phase, in.Deps, in.ScriptContext())
	}
	if err != nil {
		return explainManifestError(pkg.String(), err)
	}

	if check {
		if err := checkSyntax(string(phase), text); err != nil {
			return err
		}
	}

	fmt.Fprint(app.stdout, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(app.stdout)
	}
	return nil
}

// inputs gathers everything the script generators need for pkg on this host.
// Packages the manifest excludes from the host exit with code 2.
func (s *session) inputs(pkg pkgspec.Package, m *pantry.Manifest, flags *scriptFlags) (buildscript.Inputs, error) {
	if err := s.requireAvailable(m); err != nil {
		return buildscript.Inputs{}, err
	}
	deps, err := flags.installations()
	if err != nil {
		return buildscript.Inputs{}, err
	}
	reqs, err := m.Dependencies(s.host)
	if err != nil {
		return buildscript.Inputs{}, explainManifestError(pkg.String(), err)
	}

	return buildscript.Inputs{
		Pkg:     pkg,
		Host:    s.host,
		Paths:   s.cfg.PathsFor(pkg, s.host),
		PkgxDir: s.cfg.PkgxDir,
		Deps:    deps,
		Runtime: reqs.Runtime,
		Build:   reqs.Build,
		Test:    reqs.Test,
		Tools:   flags.tools(),
	}, nil
}

// requireAvailable returns an ExitError with code 2 when m excludes the host.
func (s *session) requireAvailable(m *pantry.Manifest) error {
	ok, err := m.Available(s.host)
	if err != nil {
		return explainManifestError(m.Project, err)
	}
	if !ok {
		return &ExitError{
			Code: exitUnavailable,
			Err:  fmt.Errorf("%s: %w: %s", m.Project, pantry.ErrUnavailable, s.host),
		}
	}
	return nil
}

// explainManifestError links manifest failures to the catalog. Other errors
// pass through.
func explainManifestError(resource string, err error) error {
	if !errors.Is(err, pantry.ErrManifest) {
		return err
	}
	return asServiceError(issue.NewErrorContext().
		WithOperation("read manifest").
		WithResource(resource).
		WithSuggestion("Validate the manifest against 'brewkit manifest schema'").
		WithIssue(issue.ManifestInvalidId).
		Wrap(err).
		BuildError())
}

// checkSyntax parses text as bash.
func checkSyntax(name, text string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(text), name); err != nil {
		return fmt.Errorf("rendered %s script does not parse: %w", name, err)
	}
	return nil
}
