// SPDX-License-Identifier: MPL-2.0

// Package pkgspec holds the package identity types shared by resolution and
// script generation, and parses "project@constraint" strings.
package pkgspec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// ErrInvalidSpec is returned for package specs that cannot be parsed.
var ErrInvalidSpec = errors.New("invalid package spec")

// specRegex splits "gnu.org/gcc^12" into project and constraint. The
// constraint begins at the first operator character.
var specRegex = regexp.MustCompile(`^([^\s^=~<>@*]+?)\s*([\^=~<>@*].*)?$`)

// Package is a project bound to a concrete version.
type Package struct {
	Project string
	Version semver.Version
}

// String returns "project=version".
func (p Package) String() string {
	return p.Project + "=" + p.Version.String()
}

// Requirement is a project with a version constraint.
type Requirement struct {
	Project    string
	Constraint semver.Range
}

// String returns the project alone when unconstrained, otherwise the project
// followed by its constraint.
func (r Requirement) String() string {
	if r.Constraint.IsAny() {
		return r.Project
	}
	return r.Project + r.Constraint.String()
}

// Installation binds a package to the directory it is installed in.
type Installation struct {
	Pkg  Package
	Path string
}

// Parse parses "project", "project@1.2", "project^3", "project>=1<2" and
// similar. A leading '@' in the constraint is dropped when another operator
// follows it ("foo@^1" is "foo^1").
func Parse(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	m := specRegex.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}

	req := Requirement{Project: m[1], Constraint: semver.Any()}
	expr := m[2]
	if rest, ok := strings.CutPrefix(expr, "@"); ok && rest != "" && strings.ContainsAny(rest[:1], "^=~<>*") {
		expr = rest
	}
	if expr == "" || expr == "@latest" {
		return req, nil
	}

	r, err := semver.ParseRange(expr)
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpec, s, err)
	}
	req.Constraint = r
	return req, nil
}

// ParsePackage parses "project=version" or "project@version" into a concrete
// package.
func ParsePackage(s string) (Package, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, "=@")
	if i <= 0 {
		return Package{}, fmt.Errorf("%w: %q: expected project=version", ErrInvalidSpec, s)
	}
	v, err := semver.Parse(s[i+1:])
	if err != nil {
		return Package{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpec, s, err)
	}
	return Package{Project: s[:i], Version: v}, nil
}
