// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PackageNotFoundId Id = iota + 1
	AmbiguousPackageId
	NoMatchingVersionId
	NoVersionsParsedId
	UpstreamFailureId
	MissingCredentialsId
	ManifestInvalidId
	PlatformUnsupportedId
	ConfigLoadFailedId
	ScriptExecutionFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide as terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			sb.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found

No pantry manifest matches the name you gave.

## Things you can try
- Check the spelling; projects are domain-like slugs such as ` + "`gnu.org/make`" + `.
- Point brewkit at your pantry checkout:
~~~
$ export PKGX_PANTRY_PATH=~/src/pantry
~~~
- Executable names work too when a manifest ` + "`provides`" + ` them.`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry"},
	}

	ambiguousPackageIssue = &Issue{
		id: AmbiguousPackageId,
		mdMsg: `
# Ambiguous package name

More than one manifest provides the name you gave.

## Things you can try
- Use the full project slug instead of the executable name:
~~~
$ brewkit resolve gnu.org/coreutils
~~~`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry"},
	}

	noMatchingVersionIssue = &Issue{
		id: NoMatchingVersionId,
		mdMsg: `
# No version satisfies the constraint

Versions were discovered for the project but none of them lies inside the
requested range.

## Things you can try
- List what upstream offers:
~~~
$ brewkit inventory <project>
~~~
- Loosen the constraint (` + "`^1`" + ` instead of ` + "`=1.2.3`" + `).
- Check the manifest's ` + "`ignore`" + ` patterns; they may hide the version you want.`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry#versions"},
	}

	noVersionsParsedIssue = &Issue{
		id: NoVersionsParsedId,
		mdMsg: `
# No versions parsed

The version source answered, but no tag or release name survived parsing.

## Things you can try
- Re-run with ` + "`--verbose`" + ` to see why each tag was skipped.
- Add a ` + "`strip`" + ` pattern for tag prefixes such as ` + "`/^release-/`" + `.
- Add a ` + "`transform`" + ` for tags that need arbitrary rewriting.`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry#versions"},
	}

	upstreamFailureIssue = &Issue{
		id: UpstreamFailureId,
		mdMsg: `
# Upstream request failed

A version source returned an error or a response brewkit could not read.
Nothing is retried automatically.

## Things you can try
- Re-run; transient outages and rate limits usually clear.
- Authenticate to raise GitHub rate limits:
~~~
$ export GITHUB_TOKEN=$(gh auth token)
~~~`,
		extLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	missingCredentialsIssue = &Issue{
		id: MissingCredentialsId,
		mdMsg: `
# GitHub credentials required

Tag listings use the GitHub GraphQL API, which does not accept anonymous
requests.

## Things you can try
- Export a token:
~~~
$ export GITHUB_TOKEN=ghp_...
~~~
- Or log in with the GitHub CLI so brewkit can ask it for one:
~~~
$ gh auth login
~~~`,
		extLinks: []HttpLink{"https://cli.github.com/manual/gh_auth_token"},
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid manifest

The package.yml contains a node brewkit cannot interpret. This is a packaging
bug; brewkit never skips such nodes silently.

## Common causes
- A script step without a ` + "`run`" + ` key.
- An ` + "`if:`" + ` that is neither a platform, an arch, a ` + "`platform/arch`" + ` pair nor a version range.
- A ` + "`versions`" + ` entry with no ` + "`github`" + `, ` + "`gitlab`" + `, ` + "`npm`" + ` or ` + "`url`" + ` key.
- A ` + "`{{token}}`" + ` that does not exist (typo in ` + "`{{version.marketing}}`" + ` and friends).`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry"},
	}

	platformUnsupportedIssue = &Issue{
		id: PlatformUnsupportedId,
		mdMsg: `
# Not available on this platform

The manifest's ` + "`platforms`" + ` key excludes the host you are building for.

## Things you can try
- Check the supported pairs:
~~~
$ brewkit platforms <project>
~~~
- Override the host in your config to render scripts for another platform.`,
		docLinks: []HttpLink{"https://docs.pkgx.sh/appendix/packaging/pantry#platforms"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

brewkit read a config file but could not use it. Defaults were applied.

## Things you can try
- Validate the file against the schema:
~~~
$ cue vet ~/.config/brewkit/config.cue
~~~
- Print the effective configuration:
~~~
$ brewkit config show
~~~`,
		docLinks: []HttpLink{"https://github.com/brewkit-dev/brewkit#configuration"},
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# Script failed

The generated script exited with a non-zero status. Scripts run with
` + "`set -eo pipefail`" + `, so the first failing command aborts the run.

## Things you can try
- Print the exact script that ran:
~~~
$ brewkit script test <pkgspec> --wrap
~~~
- Run it with the embedded interpreter to rule out host shell differences:
~~~
$ BREWKIT_RUNTIME=virtual brewkit test <pkgspec> --testbed /tmp/tb
~~~`,
		docLinks: []HttpLink{"https://github.com/brewkit-dev/brewkit#testing"},
	}

	issues = map[Id]*Issue{
		packageNotFoundIssue.Id():       packageNotFoundIssue,
		ambiguousPackageIssue.Id():      ambiguousPackageIssue,
		noMatchingVersionIssue.Id():     noMatchingVersionIssue,
		noVersionsParsedIssue.Id():      noVersionsParsedIssue,
		upstreamFailureIssue.Id():       upstreamFailureIssue,
		missingCredentialsIssue.Id():    missingCredentialsIssue,
		manifestInvalidIssue.Id():       manifestInvalidIssue,
		platformUnsupportedIssue.Id():   platformUnsupportedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		scriptExecutionFailedIssue.Id(): scriptExecutionFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	vs := maps.Values(issues)
	slices.SortFunc(vs, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return vs
}

func Get(id Id) *Issue {
	return issues[id]
}
