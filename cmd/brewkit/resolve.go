// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/semver"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentResolves bounds in-flight version discoveries.
const maxConcurrentResolves = 8

func newResolveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <pkgspec>...",
		Short: "Print the newest version satisfying each pkgspec",
		Long: `Resolve each pkgspec against the versions its project publishes upstream
and print "project=version" per line, in argument order.

A pkgspec is a project slug or provided executable optionally followed by a
constraint: zlib.net, zlib.net^1.2, gnu.org/gcc@12, node>=18<21.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, args)
		},
	}
}

func runResolve(ctx context.Context, app *App, args []string) error {
	reqs := make([]pkgspec.Requirement, len(args))
	for i, arg := range args {
		req, err := pkgspec.Parse(arg)
		if err != nil {
			return err
		}
		reqs[i] = req
	}

	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	pkgs := make([]pkgspec.Package, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)
	for i, req := range reqs {
		g.Go(func() error {
			pkg, _, err := s.resolve(gctx, req)
			if err != nil {
				return err
			}
			pkgs[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, pkg := range pkgs {
		fmt.Fprintln(app.stdout, pkg.String())
	}
	return nil
}

func newInventoryCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory <pkgspec>...",
		Short: "List the versions a project publishes",
		Long: `List every version discovered for each project, oldest first. A
constraint in the pkgspec filters the list.

With one pkgspec the versions are printed one per line; with several a JSON
object maps each project to its versions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventory(cmd.Context(), app, args)
		},
	}
}

func runInventory(ctx context.Context, app *App, args []string) error {
	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	type inventory struct {
		project  string
		versions []semver.Version
	}
	results := make([]inventory, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)
	for i, arg := range args {
		g.Go(func() error {
			req, err := pkgspec.Parse(arg)
			if err != nil {
				return err
			}
			m, err := s.lookup(gctx, req.Project)
			if err != nil {
				return err
			}
			req.Project = m.Project
			vs, err := s.resolver.Versions(gctx, m.Project)
			if err != nil {
				return explainResolveError(req, err)
			}
			results[i] = inventory{project: m.Project, versions: filterVersions(vs, req.Constraint)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(results) == 1 {
		for _, v := range results[0].versions {
			fmt.Fprintln(app.stdout, v.String())
		}
		return nil
	}

	doc := make(map[string][]string, len(results))
	for _, r := range results {
		out := make([]string, len(r.versions))
		for i, v := range r.versions {
			out[i] = v.String()
		}
		doc[r.project] = out
	}
	return writeJSON(app.stdout, doc)
}

func filterVersions(vs []semver.Version, r semver.Range) []semver.Version {
	if r.IsAny() {
		return vs
	}
	out := make([]semver.Version, 0, len(vs))
	for _, v := range vs {
		if r.Satisfies(v) {
			out = append(out, v)
		}
	}
	return out
}

// splitDep parses "project=version:path" into an installation.
func splitDep(s string) (pkgspec.Installation, error) {
	spec, path, ok := strings.Cut(s, ":")
	if !ok || path == "" {
		return pkgspec.Installation{}, fmt.Errorf("invalid --dep %q: expected project=version:path", s)
	}
	pkg, err := pkgspec.ParsePackage(spec)
	if err != nil {
		return pkgspec.Installation{}, fmt.Errorf("invalid --dep %q: %w", s, err)
	}
	return pkgspec.Installation{Pkg: pkg, Path: path}, nil
}
