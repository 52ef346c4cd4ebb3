// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// Discoverer turns a versions node into the sorted set of versions it
// describes. Clients left nil make the matching source kind an error.
type Discoverer struct {
	GitHub      *GitHubClient
	GitLab      *GitLabClient
	NPM         *NPMClient
	Scraper     *Scraper
	Transformer Transformer
}

// versionSet keeps the first version seen among those that compare equal.
type versionSet struct {
	seen map[string]bool
	list []semver.Version
}

func (s *versionSet) add(v semver.Version) bool {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	key := versionKey(v)
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.list = append(s.list, v)
	return true
}

// versionKey is the identity used by Compare: numeric components without
// trailing zero extras, then the prerelease. Build metadata is ignored.
func versionKey(v semver.Version) string {
	comps := v.Components()
	for len(comps) > 3 && comps[len(comps)-1] == 0 {
		comps = comps[:len(comps)-1]
	}
	var sb strings.Builder
	for i, n := range comps {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(n))
	}
	if v.IsPrerelease() {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(v.Prerelease, "."))
	}
	return sb.String()
}

// Discover parses node and queries its sources. The result is sorted
// ascending with duplicates removed. Sources are queried one after another;
// an upstream failure aborts discovery.
func (d *Discoverer) Discover(ctx context.Context, project string, node any) ([]semver.Version, error) {
	spec, err := ParseSpec(project, node)
	if err != nil {
		return nil, err
	}

	var set versionSet
	for _, v := range spec.Literals {
		set.add(v)
	}
	for _, src := range spec.Sources {
		found, err := d.Collect(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		if len(found) == 0 {
			slog.Warn("no versions parsed, re-run with --verbose to see why", "project", project, "source", src.Name())
		}
		for _, v := range found {
			if !set.add(v) {
				slog.Debug("ignoring", "name", v.Tag, "reason", ReasonDuplicate)
			}
		}
	}

	semver.Sort(set.list)
	return set.list, nil
}

// Collect fetches one source and returns the versions it accepted, in the
// order the source produced them.
func (d *Discoverer) Collect(ctx context.Context, src SourceSpec) ([]semver.Version, error) {
	source, err := d.source(src)
	if err != nil {
		return nil, err
	}

	switch src.Kind {
	case KindNPM, KindURL:
		return d.collectPlain(ctx, source, src.Normalizer)
	}
	if src.Transform != "" {
		return d.collectTransformed(ctx, source, src)
	}

	var rv []semver.Version
	for e, err := range source.Entries(ctx) {
		if err != nil {
			return nil, err
		}
		v, reason, ok := src.Normalizer.Normalize(e)
		if !ok {
			slog.Debug("ignoring", "name", e.Version, "reason", reason)
			continue
		}
		slog.Debug("found", "version", v.String(), "from", e.Version)
		rv = append(rv, v)
	}
	return rv, nil
}

// collectPlain parses entries as they are, for sources that already stripped
// and rewrote their own candidates.
func (d *Discoverer) collectPlain(ctx context.Context, source Source, n Normalizer) ([]semver.Version, error) {
	var rv []semver.Version
	for e, err := range source.Entries(ctx) {
		if err != nil {
			return nil, err
		}
		v, err := semver.Parse(e.Version)
		switch {
		case n.ignored(e.Version):
			slog.Debug("ignoring", "name", e.Version, "reason", ReasonExplicit)
			continue
		case err != nil:
			slog.Debug("ignoring", "name", e.Version, "reason", ReasonUnparsable)
			continue
		case v.IsPrerelease():
			slog.Debug("ignoring", "name", e.Version, "reason", ReasonPrerelease)
			continue
		}
		tag := e.Tag
		if tag == "" {
			tag = e.Version
		}
		rv = append(rv, v.WithTag(tag))
	}
	return rv, nil
}

// collectTransformed strips and filters names, hands them to the
// transformer, and parses what comes back. The built-in delimiter
// heuristics and prerelease filter do not apply.
func (d *Discoverer) collectTransformed(ctx context.Context, source Source, src SourceSpec) ([]semver.Version, error) {
	if d.Transformer == nil {
		return nil, fmt.Errorf("%w: no transformer configured", ErrTransform)
	}

	var (
		names []string
		tags  = map[string]string{}
	)
	for e, err := range source.Entries(ctx) {
		if err != nil {
			return nil, err
		}
		name, ok := src.Normalizer.Prepare(e.Version)
		if !ok {
			slog.Debug("ignoring", "name", e.Version, "reason", ReasonExplicit)
			continue
		}
		names = append(names, name)
		if e.Tag != "" {
			tags[name] = e.Tag
		}
	}

	results, err := d.Transformer.Transform(ctx, src.Transform, names)
	if err != nil {
		return nil, err
	}

	var rv []semver.Version
	for _, r := range results {
		v, err := semver.Parse(r.Version)
		if err != nil {
			slog.Debug("ignoring", "name", r.Original, "transformed", r.Version, "reason", ReasonUnparsable)
			continue
		}
		tag := r.Original
		if t, ok := tags[r.Original]; ok {
			tag = t
		}
		rv = append(rv, v.WithTag(tag))
	}
	return rv, nil
}

func (d *Discoverer) source(src SourceSpec) (Source, error) {
	switch src.Kind {
	case KindGitHub:
		if d.GitHub != nil {
			return d.GitHub.Source(src.GitHubOwner, src.GitHubRepo, src.GitHubMode), nil
		}
	case KindGitLab:
		if d.GitLab != nil {
			return d.GitLab.Source(src.GitLab), nil
		}
	case KindNPM:
		if d.NPM != nil {
			return d.NPM.Source(src.NPMPackage, src.NPMIgnore), nil
		}
	case KindURL:
		if d.Scraper != nil {
			return d.Scraper.Source(src.URL, src.Match, src.Normalizer.Strip), nil
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
	return nil, fmt.Errorf("no %s client configured", src.Kind)
}
