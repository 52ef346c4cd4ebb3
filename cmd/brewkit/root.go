// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/brewkit-dev/brewkit/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the brewkit command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brewkit",
		Short: "Resolve package versions and render pantry build scripts",
		Long: TitleStyle.Render("brewkit") + SubtitleStyle.Render(" - pantry version resolution and script generation") + `

brewkit reads package manifests from a pantry, discovers the versions a
project has published upstream (GitHub, GitLab, npm or a scraped web page),
picks the newest one satisfying a constraint and renders the manifest's
build and test scripts for the host.

` + SubtitleStyle.Render("Examples:") + `
  brewkit resolve zlib.net^1.3      Print the newest matching version
  brewkit inventory curl.se         List every published version
  brewkit script build zlib.net     Print the build script
  brewkit test zlib.net=1.3.1       Run the test script
  brewkit config show               Show current configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.configureLogging(app.verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/brewkit/config.cue)")

	rootCmd.AddCommand(
		newResolveCommand(app),
		newInventoryCommand(app),
		newScriptCommand(app),
		newTestCommand(app),
		newPlatformsCommand(app),
		newAvailableCommand(app),
		newDepsCommand(app),
		newDistributableCommand(app),
		newPathsCommand(app),
		newStowageCommand(app),
		newManifestCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
