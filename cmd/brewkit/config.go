// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	goruntime "runtime"

	"github.com/brewkit-dev/brewkit/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCommand creates the `brewkit config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect brewkit configuration",
		Long: `Inspect brewkit configuration.

Configuration is read from, in increasing priority:
  - built-in defaults
  - the config file: $XDG_CONFIG_HOME/brewkit/config.cue
    (~/Library/Application Support/brewkit/config.cue on macOS)
  - GITHUB_TOKEN, GITLAB_TOKEN, PKGX_DIR, PKGX_PANTRY_PATH and XDG_* variables
  - BREWKIT_<KEY> variables, e.g. BREWKIT_HTTP_MAX_PAGES=20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	format := newEnumValue("format", "cue", "cue", "yaml", "toml")
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Show the effective configuration with secrets redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
				ConfigFilePath: app.configPath,
				Getenv:         app.Getenv,
			})
			if err != nil {
				return asServiceError(err)
			}
			return showConfig(app, cfg, format.String())
		},
	}
	enumFlag(showCmd, format, "format", "output format: cue, yaml or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the CUE schema config files are validated against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.stdout.Write(config.Schema())
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.configPath != "" {
				fmt.Fprintln(app.stdout, app.configPath)
				return nil
			}
			dir, err := config.ConfigDir(app.Getenv, goruntime.GOOS)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config, format string) error {
	switch format {
	case "cue":
		fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
		return nil
	case "yaml":
		enc := yaml.NewEncoder(app.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(config.Document(cfg)); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(app.stdout).Encode(config.Document(cfg))
	}
	return fmt.Errorf("unknown format %q (valid: cue, yaml, toml)", format)
}
