// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// Source kinds.
const (
	KindGitHub = "github"
	KindGitLab = "gitlab"
	KindNPM    = "npm"
	KindURL    = "url"
)

type (
	// Spec is a parsed versions node: literal versions plus remote sources.
	Spec struct {
		Literals []semver.Version
		Sources  []SourceSpec
	}

	// SourceSpec describes one remote source and how to post-process what it
	// returns.
	SourceSpec struct {
		Kind string
		// Field is the manifest path of the descriptor, for error messages.
		Field string

		GitHubOwner string
		GitHubRepo  string
		GitHubMode  string
		GitLab      GitLabAddress
		NPMPackage  string
		// NPMIgnore lists literal versions to drop.
		NPMIgnore []string
		URL       string
		Match     *regexp.Regexp

		Normalizer Normalizer
		// Transform is a function expression applied to every stripped name
		// instead of the built-in heuristics.
		Transform string
	}
)

// ParseSpec parses the versions node of project's manifest: a list mixing
// literal versions and source descriptors, or a single descriptor.
func ParseSpec(project string, node any) (Spec, error) {
	items, isList := node.([]any)
	if !isList {
		items = []any{node}
	}

	var spec Spec
	for i, item := range items {
		field := "versions"
		if isList {
			field = fmt.Sprintf("versions[%d]", i)
		}

		switch v := item.(type) {
		case *pantry.Mapping:
			src, err := parseSource(project, field, v)
			if err != nil {
				return Spec{}, err
			}
			spec.Sources = append(spec.Sources, src)
		case string, int, float64:
			text := literal(v)
			if c := calverRegex.FindStringSubmatch(text); c != nil {
				text = c[1] + "." + c[2] + "." + c[3]
			}
			lit, err := semver.Parse(text)
			if err != nil {
				return Spec{}, pantry.ManifestErrorf(project, field, "%v", err)
			}
			spec.Literals = append(spec.Literals, lit)
		default:
			return Spec{}, pantry.ManifestErrorf(project, field, "expected a version or a source, got %T", item)
		}
	}
	return spec, nil
}

// literal renders a YAML scalar as version text; 3 becomes "3".
func literal(v any) string {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func parseSource(project, field string, m *pantry.Mapping) (SourceSpec, error) {
	src := SourceSpec{Field: field}
	errf := func(sub, format string, args ...any) error {
		return pantry.ManifestErrorf(project, field+"."+sub, format, args...)
	}

	var err error
	if src.Transform, err = optionalString(m, "transform"); err != nil {
		return SourceSpec{}, errf("transform", "%v", err)
	}
	ignore, err := stringList(m, "ignore")
	if err != nil {
		return SourceSpec{}, errf("ignore", "%v", err)
	}
	strip, err := stringList(m, "strip")
	if err != nil {
		return SourceSpec{}, errf("strip", "%v", err)
	}
	if src.Normalizer.Strip, err = CompileStrip(strip); err != nil {
		return SourceSpec{}, errf("strip", "%v", err)
	}

	switch {
	case has(m, KindGitHub):
		src.Kind = KindGitHub
		addr, err := optionalString(m, KindGitHub)
		if err != nil {
			return SourceSpec{}, errf(KindGitHub, "%v", err)
		}
		parts := strings.SplitN(addr, "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return SourceSpec{}, errf(KindGitHub, "expected owner/repo[/mode], got %q", addr)
		}
		src.GitHubOwner, src.GitHubRepo, src.GitHubMode = parts[0], parts[1], GitHubReleaseTags
		if len(parts) == 3 {
			src.GitHubMode = parts[2]
		}
		switch src.GitHubMode {
		case GitHubReleases, GitHubTags, GitHubReleaseTags:
		default:
			return SourceSpec{}, errf(KindGitHub, "unknown mode %q", src.GitHubMode)
		}

	case has(m, KindGitLab):
		src.Kind = KindGitLab
		addr, err := optionalString(m, KindGitLab)
		if err != nil {
			return SourceSpec{}, errf(KindGitLab, "%v", err)
		}
		if src.GitLab, err = ParseGitLabAddress(addr); err != nil {
			return SourceSpec{}, errf(KindGitLab, "%v", err)
		}

	case has(m, KindNPM):
		src.Kind = KindNPM
		if src.NPMPackage, err = optionalString(m, KindNPM); err != nil || src.NPMPackage == "" {
			return SourceSpec{}, errf(KindNPM, "expected a package name")
		}
		// npm ignores are literal versions, not patterns.
		src.NPMIgnore = ignore
		return src, nil

	case has(m, KindURL):
		src.Kind = KindURL
		if src.URL, err = optionalString(m, KindURL); err != nil || src.URL == "" {
			return SourceSpec{}, errf(KindURL, "expected a URL")
		}
		match, err := optionalString(m, "match")
		if err != nil {
			return SourceSpec{}, errf("match", "%v", err)
		}
		body, ok := delimited(match)
		if !ok {
			return SourceSpec{}, errf("match", "expected /regex/, got %q", match)
		}
		if src.Match, err = regexp.Compile(body); err != nil {
			return SourceSpec{}, errf("match", "%v", err)
		}

	default:
		first := "undefined"
		if keys := m.Keys(); len(keys) > 0 {
			first = keys[0]
		}
		return SourceSpec{}, pantry.ManifestErrorf(project, field, "could not parse version scheme for %s", first)
	}

	if src.Normalizer.Ignore, err = CompileIgnore(ignore); err != nil {
		return SourceSpec{}, errf("ignore", "%v", err)
	}
	return src, nil
}

func has(m *pantry.Mapping, key string) bool {
	v, ok := m.Get(key)
	return ok && v != nil
}

func optionalString(m *pantry.Mapping, key string) (string, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func stringList(m *pantry.Mapping, key string) ([]string, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if e == nil {
				continue
			}
			out = append(out, literal(e))
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or list, got %T", v)
}

// Name describes the source for logs and errors.
func (s SourceSpec) Name() string {
	switch s.Kind {
	case KindGitHub:
		return KindGitHub + ":" + s.GitHubOwner + "/" + s.GitHubRepo + "/" + s.GitHubMode
	case KindGitLab:
		return KindGitLab + ":" + s.GitLab.Server + ":" + s.GitLab.Project + "/" + s.GitLab.Mode
	case KindNPM:
		return KindNPM + ":" + s.NPMPackage
	case KindURL:
		return s.URL
	}
	return s.Kind
}
