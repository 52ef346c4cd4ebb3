// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// Reasons a candidate is skipped.
const (
	ReasonExplicit   = "explicit"
	ReasonUnparsable = "unparsable"
	ReasonPrerelease = "prerelease"
	ReasonDuplicate  = "duplicate"
)

// placeholderRegex finds the x/y/z wildcards of an ignore glob.
var placeholderRegex = regexp.MustCompile(`(x|y|z)\b`)

// Normalizer turns raw tag and release names into versions.
type Normalizer struct {
	Ignore []*regexp.Regexp
	Strip  []*regexp.Regexp
}

// CompileIgnore compiles ignore patterns. "/re/" is a regular expression;
// anything else is a literal matched in full, where x, y and z stand for a
// run of digits ("1.x" matches "1.5" and "1.12" but not "2.0").
func CompileIgnore(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		var expr string
		if body, ok := delimited(p); ok {
			expr = body
		} else {
			expr = "^" + placeholderRegex.ReplaceAllString(regexp.QuoteMeta(p), `\d+`) + "$"
		}
		rx, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("ignore %q: %w", p, err)
		}
		out = append(out, rx)
	}
	return out, nil
}

// CompileStrip compiles strip patterns, each of which must be "/re/".
func CompileStrip(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		body, ok := delimited(p)
		if !ok {
			return nil, fmt.Errorf("strip %q: expected /regex/", p)
		}
		rx, err := regexp.Compile(body)
		if err != nil {
			return nil, fmt.Errorf("strip %q: %w", p, err)
		}
		out = append(out, rx)
	}
	return out, nil
}

func delimited(p string) (string, bool) {
	if len(p) >= 2 && strings.HasPrefix(p, "/") && strings.HasSuffix(p, "/") {
		return p[1 : len(p)-1], true
	}
	return "", false
}

// stripAll removes the first match of each expression in turn.
func stripAll(s string, strip []*regexp.Regexp) string {
	for _, rx := range strip {
		if loc := rx.FindStringIndex(s); loc != nil {
			s = s[:loc[0]] + s[loc[1]:]
		}
	}
	return s
}

// Prepare strips name and applies the ignore list. It returns the stripped
// name and false when the candidate is ignored.
func (n Normalizer) Prepare(name string) (string, bool) {
	name = stripAll(name, n.Strip)
	return name, !n.ignored(name)
}

func (n Normalizer) ignored(name string) bool {
	for _, rx := range n.Ignore {
		if rx.MatchString(name) {
			return true
		}
	}
	return false
}

// Normalize converts e into a version. On failure it returns the reason the
// candidate was skipped. The version's tag is e.Tag, or the unstripped name
// when the source provided none.
func (n Normalizer) Normalize(e Entry) (semver.Version, string, bool) {
	name, ok := n.Prepare(e.Version)
	if !ok {
		return semver.Version{}, ReasonExplicit, false
	}

	// Tags like v1_2_3 or 2021-05-01 use another delimiter for dots.
	if strings.Contains(name, "_") && !strings.Contains(name, ".") {
		name = strings.ReplaceAll(name, "_", ".")
	}
	if strings.Contains(name, "-") && !strings.Contains(name, ".") {
		name = strings.ReplaceAll(name, "-", ".")
	}

	v, err := semver.Parse(name)
	if err != nil {
		return semver.Version{}, ReasonUnparsable, false
	}
	if v.IsPrerelease() {
		return semver.Version{}, ReasonPrerelease, false
	}

	tag := e.Tag
	if tag == "" {
		tag = e.Version
	}
	return v.WithTag(tag), "", true
}
