// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/config"
	"github.com/brewkit-dev/brewkit/internal/issue"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/internal/resolver"
	"github.com/brewkit-dev/brewkit/internal/versions"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"

	"github.com/charmbracelet/log"
)

// suggestionLimit bounds the "did you mean" list for unknown packages.
const suggestionLimit = 3

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command handler receives the App and
	// builds its session through it.
	App struct {
		Config     config.Provider
		HTTPClient *http.Client
		Getenv     func(string) string
		LookupEnv  func(string) (string, bool)
		stdout     io.Writer
		stderr     io.Writer

		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		HTTPClient *http.Client
		Getenv     func(string) string
		LookupEnv  func(string) (string, bool)
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// session is what one command invocation works with: the loaded config,
	// the resolved host and the services built from them.
	session struct {
		cfg      *config.Config
		host     platform.Host
		pantry   *pantry.Pantry
		resolver *resolver.Resolver
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		Getenv:     deps.Getenv,
		LookupEnv:  deps.LookupEnv,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}, nil
}

// configureLogging installs the charm log handler as the slog default.
func (a *App) configureLogging(verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// session loads configuration and builds the services for one command.
func (a *App) session(ctx context.Context) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.configPath,
		Getenv:         a.Getenv,
	})
	if err != nil {
		return nil, asServiceError(err)
	}
	if cfg.UI.Verbose && !a.verbose {
		a.verbose = true
		a.configureLogging(true)
	}

	host, err := cfg.ResolveHost()
	if err != nil {
		return nil, asServiceError(issue.NewErrorContext().
			WithOperation("detect host platform").
			WithSuggestion("Set host.platform and host.arch in the config file").
			WithIssue(issue.PlatformUnsupportedId).
			Wrap(err).
			BuildError())
	}
	slog.Debug("session", "host", host.String(), "pantry", cfg.PantryPaths)

	p := pantry.New(cfg.PantryPaths...)
	return &session{
		cfg:      cfg,
		host:     host,
		pantry:   p,
		resolver: resolver.New(p, a.discoverer(cfg)),
	}, nil
}

// discoverer builds the version source clients from cfg.
func (a *App) discoverer(cfg *config.Config) *versions.Discoverer {
	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTP.Timeout}
	}
	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = config.AppName + "/" + Version
	}
	common := []versions.Option{
		versions.WithHTTPClient(client),
		versions.WithUserAgent(ua),
		versions.WithMaxPages(cfg.HTTP.MaxPages),
	}

	return &versions.Discoverer{
		GitHub: versions.NewGitHubClient(slices.Concat(common, []versions.Option{
			versions.WithBaseURL(cfg.GitHub.APIURL),
			versions.WithGraphQLURL(cfg.GitHub.GraphQLURL),
			versions.WithToken(cfg.GitHub.Token),
			versions.WithCredentialHelper(cfg.GitHub.CredentialHelper),
			versions.WithTagsCap(cfg.GitHub.TagsCap),
		})...),
		GitLab: versions.NewGitLabClient(slices.Concat(common, []versions.Option{
			versions.WithToken(cfg.GitLab.Token),
		})...),
		NPM: versions.NewNPMClient(slices.Concat(common, []versions.Option{
			versions.WithBaseURL(cfg.NPM.RegistryURL),
		})...),
		Scraper: versions.NewScraper(common...),
		Transformer: versions.ExecTransformer{
			Command: cfg.Transform.Command,
			Path:    cfg.Transform.Path,
			Timeout: cfg.Transform.Timeout,
		},
	}
}

// lookup finds the manifest for name, which may be a project slug or an
// executable some manifest provides.
func (s *session) lookup(ctx context.Context, name string) (*pantry.Manifest, error) {
	m, err := s.pantry.Lookup(ctx, name)
	if err == nil {
		return m, nil
	}

	ec := issue.NewErrorContext().
		WithOperation("find package").
		WithResource(name).
		Wrap(err)

	var ambiguous *pantry.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		ec.WithIssue(issue.AmbiguousPackageId)
		for _, c := range ambiguous.Candidates {
			ec.WithSuggestion("Use the project name: " + c)
		}
	case errors.Is(err, pantry.ErrNoPantry):
		ec.WithIssue(issue.PackageNotFoundId).
			WithSuggestion(fmt.Sprintf("No pantry found under %s", strings.Join(s.pantry.Roots(), ", "))).
			WithSuggestion("Set PKGX_PANTRY_PATH to a pantry checkout")
	case errors.Is(err, pantry.ErrNotFound):
		ec.WithIssue(issue.PackageNotFoundId)
		if similar, suggestErr := s.pantry.Suggest(ctx, name, suggestionLimit); suggestErr == nil && len(similar) > 0 {
			ec.WithSuggestion("Did you mean: " + strings.Join(similar, ", ") + "?")
		}
	case errors.Is(err, pantry.ErrManifest):
		ec.WithIssue(issue.ManifestInvalidId)
	}
	return nil, asServiceError(ec.BuildError())
}

// resolve binds req to the newest satisfying version. The requirement's
// project may be an executable name; the returned package names the
// manifest's project.
func (s *session) resolve(ctx context.Context, req pkgspec.Requirement) (pkgspec.Package, *pantry.Manifest, error) {
	m, err := s.lookup(ctx, req.Project)
	if err != nil {
		return pkgspec.Package{}, nil, err
	}
	req.Project = m.Project

	pkg, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return pkgspec.Package{}, nil, explainResolveError(req, err)
	}
	return pkg, m, nil
}

// target resolves a command argument. "project=version" names a concrete
// package and skips version discovery; anything else is a requirement.
func (s *session) target(ctx context.Context, arg string) (pkgspec.Package, *pantry.Manifest, error) {
	if pkg, ok := concretePackage(arg); ok {
		m, err := s.lookup(ctx, pkg.Project)
		if err != nil {
			return pkgspec.Package{}, nil, err
		}
		pkg.Project = m.Project
		return pkg, m, nil
	}

	req, err := pkgspec.Parse(arg)
	if err != nil {
		return pkgspec.Package{}, nil, err
	}
	return s.resolve(ctx, req)
}

// concretePackage parses "project=version". Constraint operators before the
// '=' ("foo>=1") make it a requirement instead.
func concretePackage(arg string) (pkgspec.Package, bool) {
	i := strings.IndexByte(arg, '=')
	if i <= 0 || strings.ContainsAny(arg[:i], "^~<>@*") {
		return pkgspec.Package{}, false
	}
	pkg, err := pkgspec.ParsePackage(arg)
	if err != nil {
		return pkgspec.Package{}, false
	}
	return pkg, true
}

// explainResolveError attaches catalog context to a resolution failure.
func explainResolveError(req pkgspec.Requirement, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("resolve package").
		WithResource(req.String()).
		Wrap(err)

	var noVersion *resolver.NoVersionError
	switch {
	case errors.As(err, &noVersion) && noVersion.Available == 0:
		ec.WithIssue(issue.NoVersionsParsedId).
			WithSuggestion("Re-run with --verbose to see why each tag was skipped")
	case errors.As(err, &noVersion):
		ec.WithIssue(issue.NoMatchingVersionId).
			WithSuggestion("Run 'brewkit inventory " + req.Project + "' to list versions")
	case errors.Is(err, versions.ErrNoCredentials):
		ec.WithIssue(issue.MissingCredentialsId)
	case errors.Is(err, versions.ErrUpstream):
		ec.WithIssue(issue.UpstreamFailureId)
	case errors.Is(err, pantry.ErrManifest):
		ec.WithIssue(issue.ManifestInvalidId)
	}
	return asServiceError(ec.BuildError())
}
