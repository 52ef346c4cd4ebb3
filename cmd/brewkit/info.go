// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/internal/stowage"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"

	"github.com/spf13/cobra"
)

func newPlatformsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms <project>",
		Short: "List the platform/arch pairs a package builds for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			m, err := s.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pairs, err := m.Platforms()
			if err != nil {
				return explainManifestError(m.Project, err)
			}
			for _, p := range pairs {
				fmt.Fprintln(app.stdout, p)
			}
			return nil
		},
	}
}

func newAvailableCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "available <project>...",
		Short: "Exit 2 unless every package builds on this host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range args {
				m, err := s.lookup(cmd.Context(), name)
				if err != nil {
					return err
				}
				if err := s.requireAvailable(m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDepsCommand(app *App) *cobra.Command {
	var build, test bool

	cmd := &cobra.Command{
		Use:   "deps <project>",
		Short: "List the direct dependencies of a package on this host",
		Long: `List the runtime dependencies of a package, one requirement per line.
--build adds the build dependencies and --test the test dependencies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			m, err := s.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			deps, err := m.Dependencies(s.host)
			if err != nil {
				return explainManifestError(m.Project, err)
			}

			reqs := deps.Runtime
			if build {
				reqs = append(reqs, deps.Build...)
			}
			if test {
				reqs = append(reqs, deps.Test...)
			}
			for _, r := range reqs {
				fmt.Fprintln(app.stdout, r.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&build, "build", false, "include build dependencies")
	cmd.Flags().BoolVar(&test, "test", false, "include test dependencies")
	return cmd
}

func newDistributableCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "distributable <pkgspec>",
		Short: "Print where a package's sources are downloaded from",
		Long: `Print the source location of a package as JSON, with the version and
host tokens expanded. Nothing is printed for packages without sources.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.session(ctx)
			if err != nil {
				return err
			}
			pkg, m, err := s.target(ctx, args[0])
			if err != nil {
				return err
			}
			dist, err := m.Distributable(pkg, s.host)
			if err != nil {
				return explainManifestError(pkg.String(), err)
			}
			if dist == nil {
				return nil
			}
			return writeJSON(app.stdout, dist)
		},
	}
}

func newPathsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "paths <project=version>",
		Short: "Print the directories a build and test of a package use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := pkgspec.ParsePackage(args[0])
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(app.stdout, s.cfg.PathsFor(pkg, s.host))
		},
	}
}

// stowedDocument is the JSON shape of a decoded archive name.
type stowedDocument struct {
	Project     string `json:"project"`
	Version     string `json:"version"`
	Kind        string `json:"kind"`
	Compression string `json:"compression"`
	Platform    string `json:"platform,omitempty"`
	Arch        string `json:"arch,omitempty"`
	Filename    string `json:"filename"`
}

func newStowageCommand(app *App) *cobra.Command {
	stowageCmd := &cobra.Command{
		Use:   "stowage",
		Short: "Encode and decode bottle and source archive names",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	stowageCmd.AddCommand(&cobra.Command{
		Use:   "decode <file>...",
		Short: "Identify archives from their file names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]stowedDocument, 0, len(args))
			for _, path := range args {
				st, ok := stowage.Decode(path)
				if !ok {
					return fmt.Errorf("not a bottle or source archive: %s", path)
				}
				docs = append(docs, stowedDocument{
					Project:     st.Pkg.Project,
					Version:     st.Pkg.Version.String(),
					Kind:        string(st.Kind),
					Compression: string(st.Compression),
					Platform:    st.Host.Platform,
					Arch:        st.Host.Arch,
					Filename:    st.Filename(),
				})
			}
			if len(docs) == 1 {
				return writeJSON(app.stdout, docs[0])
			}
			return writeJSON(app.stdout, docs)
		},
	})

	kind := newEnumValue("kind", string(stowage.Bottle), string(stowage.Bottle), string(stowage.Source))
	compression := newEnumValue("compression", string(stowage.XZ), string(stowage.Gzip), string(stowage.XZ))
	encodeCmd := &cobra.Command{
		Use:   "encode <project=version>",
		Short: "Print the archive name of a package",
		Long: `Print the archive name of a package. Bottles are named for this host
unless host.platform and host.arch are configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := pkgspec.ParsePackage(args[0])
			if err != nil {
				return err
			}
			st := stowage.Stowed{Pkg: pkg, Kind: stowage.Kind(kind.String()), Compression: stowage.Compression(compression.String())}
			if err := st.Validate(); err != nil {
				return err
			}
			if st.Kind == stowage.Bottle {
				host, err := app.host(cmd.Context())
				if err != nil {
					return err
				}
				st.Host = host
			}
			fmt.Fprintln(app.stdout, st.Filename())
			return nil
		},
	}
	enumFlag(encodeCmd, kind, "kind", "archive kind: bottle or src")
	enumFlag(encodeCmd, compression, "compression", "compression: gz or xz")
	stowageCmd.AddCommand(encodeCmd)

	return stowageCmd
}

// host resolves the host without building the rest of a session.
func (a *App) host(ctx context.Context) (platform.Host, error) {
	s, err := a.session(ctx)
	if err != nil {
		return platform.Host{}, err
	}
	return s.host, nil
}

func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect pantry manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	manifestCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the CUE schema manifests are validated against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.stdout.Write(pantry.ManifestSchema())
			return err
		},
	})

	manifestCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every project in the pantry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := s.pantry.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(app.stdout, e.Project)
			}
			return nil
		},
	})

	manifestCmd.AddCommand(&cobra.Command{
		Use:   "check <project>...",
		Short: "Load and validate manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range args {
				m, err := s.lookup(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(m.Project))
			}
			return nil
		},
	})

	return manifestCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
