// SPDX-License-Identifier: MPL-2.0

// Package moustache substitutes {{name}} tokens in manifest text.
//
// Token lists are assembled fresh for every call from the package, its
// version, the host and the installed dependencies. A list may name the same
// token more than once; Fold walks it left to right so the last entry wins,
// which is how callers override "prefix" for the build phase.
package moustache

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// ErrUnresolved is returned when a template names a token that is not in the
// token list.
var ErrUnresolved = errors.New("unresolved token")

// tokenRegex matches {{ name }}. Names start with a word character so that
// Go templates such as {{.Id}} inside scripts pass through untouched.
var tokenRegex = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_][A-Za-z0-9_.+\-/]*)\s*\}\}`)

type (
	// Token is one substitution pair.
	Token struct {
		From string
		To   string
	}

	// Map is a folded token list: lookups plus the order keys were first seen.
	Map struct {
		keys   []string
		values map[string]string
	}

	// UnresolvedError lists the token names a template used but the token
	// list did not define.
	UnresolvedError struct {
		Names []string
	}
)

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved token: %s", strings.Join(e.Names, ", "))
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolved }

// Fold builds a Map from the given lists in order; a later entry for the same
// name replaces the earlier value but keeps its position.
func Fold(lists ...[]Token) *Map {
	m := &Map{values: map[string]string{}}
	for _, list := range lists {
		for _, t := range list {
			if _, ok := m.values[t.From]; !ok {
				m.keys = append(m.keys, t.From)
			}
			m.values[t.From] = t.To
		}
	}
	return m
}

// Lookup returns the value bound to name.
func (m *Map) Lookup(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Keys returns token names in first-seen order.
func (m *Map) Keys() []string {
	return slices.Clone(m.keys)
}

// Tokens renders the map back into a list without duplicates.
func (m *Map) Tokens() []Token {
	out := make([]Token, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Token{From: k, To: m.values[k]})
	}
	return out
}

// Apply substitutes every {{name}} in template. Names missing from the map
// are collected and reported together as an *UnresolvedError.
func (m *Map) Apply(template string) (string, error) {
	var missing []string
	out := tokenRegex.ReplaceAllStringFunc(template, func(match string) string {
		name := tokenRegex.FindStringSubmatch(match)[1]
		if v, ok := m.values[name]; ok {
			return v
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return match
	})
	if len(missing) > 0 {
		return "", &UnresolvedError{Names: missing}
	}
	return out, nil
}

// Apply folds tokens and substitutes them into template.
func Apply(template string, tokens []Token) (string, error) {
	return Fold(tokens).Apply(template)
}

// Version returns the tokens for v under prefix (usually "version"):
// the full version plus major, minor, patch, marketing, build, raw and tag.
func Version(v semver.Version, prefix string) []Token {
	tag := v.Tag
	if tag == "" {
		tag = v.Raw
	}
	return []Token{
		{From: prefix, To: v.String()},
		{From: prefix + ".major", To: strconv.Itoa(v.Major)},
		{From: prefix + ".minor", To: strconv.Itoa(v.Minor)},
		{From: prefix + ".patch", To: strconv.Itoa(v.Patch)},
		{From: prefix + ".marketing", To: v.Marketing()},
		{From: prefix + ".build", To: v.Build},
		{From: prefix + ".raw", To: v.Raw},
		{From: prefix + ".tag", To: tag},
	}
}

// Host returns the hw.* tokens.
func Host(h platform.Host) []Token {
	concurrency := h.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return []Token{
		{From: "hw.arch", To: h.Arch},
		{From: "hw.target", To: h.Target()},
		{From: "hw.platform", To: h.Platform},
		{From: "hw.concurrency", To: strconv.Itoa(concurrency)},
	}
}

// Deps returns deps.<project>.prefix and deps.<project>.version* for every
// installation.
func Deps(deps []pkgspec.Installation) []Token {
	var out []Token
	for _, d := range deps {
		out = append(out, Token{From: "deps." + d.Pkg.Project + ".prefix", To: d.Path})
		out = append(out, Version(d.Pkg.Version, "deps."+d.Pkg.Project+".version")...)
	}
	return out
}

// Package returns the prefix token bound to the package's install path.
func Package(prefix string) []Token {
	return []Token{{From: "prefix", To: prefix}}
}

// Inputs gathers what All needs to assemble a complete token list.
type Inputs struct {
	Pkg     pkgspec.Package
	Deps    []pkgspec.Installation
	Host    platform.Host
	Prefix  string
	PkgxDir string
}

// All returns the complete token list for a script: dependency tokens first,
// then the package prefix, the pkgx directory, the version and the host.
func All(in Inputs) []Token {
	tokens := Deps(in.Deps)
	tokens = append(tokens, Package(in.Prefix)...)
	if in.PkgxDir != "" {
		tokens = append(tokens, Token{From: "pkgx.dir", To: in.PkgxDir})
	}
	tokens = append(tokens, Version(in.Pkg.Version, "version")...)
	tokens = append(tokens, Host(in.Host)...)
	return tokens
}
