// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	_ "embed"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/moustache"
	"github.com/brewkit-dev/brewkit/pkg/cueutil"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// Phases with a script node.
const (
	PhaseBuild = "build"
	PhaseTest  = "test"
)

// DistributableType values.
const (
	DistributableURL = "url"
	DistributableGit = "git"
)

var (
	//go:embed manifest_schema.cue
	manifestSchema []byte

	platformPairRegex = regexp.MustCompile(`^(linux|darwin)/(aarch64|x86-64)$`)
	platformOnlyRegex = regexp.MustCompile(`^(linux|darwin)$`)
)

type (
	// Manifest is a parsed package.yml. The document is read-only once
	// loaded; accessors return fresh values.
	Manifest struct {
		Project string
		// Path is the package.yml file the manifest was read from.
		Path string
		root *Mapping
	}

	// Deps are the direct dependencies of a manifest, platform-reduced for
	// one host.
	Deps struct {
		Runtime []pkgspec.Requirement `json:"runtime"`
		Build   []pkgspec.Requirement `json:"build"`
		Test    []pkgspec.Requirement `json:"test"`
	}

	// Distributable describes where a package's sources come from.
	Distributable struct {
		Type            string `json:"type"`
		URL             string `json:"url"`
		Ref             string `json:"ref,omitempty"`
		StripComponents int    `json:"strip_components"`
	}
)

// ManifestSchema returns the embedded CUE schema manifests are checked against.
func ManifestSchema() []byte {
	return manifestSchema
}

// ParseManifest decodes and validates a package.yml document.
func ParseManifest(project, path string, data []byte) (*Manifest, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, &ManifestError{Project: project, Reason: err.Error()}
	}

	doc, err := DecodeYAML(data)
	if err != nil {
		return nil, &ManifestError{Project: project, Reason: err.Error()}
	}
	root, ok := doc.(*Mapping)
	if !ok {
		return nil, &ManifestError{Project: project, Reason: "document is not a mapping"}
	}

	if err := cueutil.ValidateData(manifestSchema, "#Manifest", root.Plain(), cueutil.WithFilename(path)); err != nil {
		return nil, &ManifestError{Project: project, Reason: err.Error()}
	}

	return &Manifest{Project: project, Path: path, root: root}, nil
}

// Node returns a top-level node of the document.
func (m *Manifest) Node(key string) (any, bool) {
	return m.root.Get(key)
}

// Root returns the whole document.
func (m *Manifest) Root() *Mapping {
	return m.root.Clone()
}

// Versions returns the versions node, a literal list or a source descriptor.
func (m *Manifest) Versions() (any, error) {
	v, ok := m.root.Get("versions")
	if !ok || v == nil {
		return nil, &ManifestError{Project: m.Project, Field: "versions", Reason: "missing"}
	}
	return v, nil
}

// Script returns the build or test node.
func (m *Manifest) Script(phase string) (any, error) {
	if phase != PhaseBuild && phase != PhaseTest {
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
	v, ok := m.root.Get(phase)
	if !ok || v == nil {
		return nil, &ManifestError{Project: m.Project, Field: phase, Reason: "missing"}
	}
	return v, nil
}

// Platforms returns the platform/arch pairs the package builds for. Without
// a platforms node every supported pair is returned; a bare platform expands
// to both architectures.
func (m *Manifest) Platforms() ([]string, error) {
	node, ok := m.root.Get("platforms")
	if !ok || node == nil {
		return []string{"linux/x86-64", "linux/aarch64", "darwin/x86-64", "darwin/aarch64"}, nil
	}

	var entries []any
	switch n := node.(type) {
	case string:
		entries = []any{n}
	case []any:
		entries = n
	default:
		return nil, ManifestErrorf(m.Project, "platforms", "expected a string or list, got %T", node)
	}

	var out []string
	for i, e := range entries {
		s, _ := e.(string)
		switch {
		case platformPairRegex.MatchString(s):
			out = append(out, s)
		case platformOnlyRegex.MatchString(s):
			out = append(out, s+"/x86-64", s+"/aarch64")
		default:
			return nil, ManifestErrorf(m.Project, fmt.Sprintf("platforms[%d]", i), "invalid platform %v", e)
		}
	}
	return out, nil
}

// Available reports whether host is one of Platforms.
func (m *Manifest) Available(host platform.Host) (bool, error) {
	pairs, err := m.Platforms()
	if err != nil {
		return false, err
	}
	for _, p := range pairs {
		if p == host.String() {
			return true, nil
		}
	}
	return false, nil
}

// Provides returns the executable names the package installs, without their
// bin/ or sbin/ prefix. Entries elsewhere are ignored.
func (m *Manifest) Provides() ([]string, error) {
	node, ok := m.root.Get("provides")
	if !ok || node == nil {
		return nil, nil
	}
	list, ok := node.([]any)
	if !ok {
		return nil, ManifestErrorf(m.Project, "provides", "expected a list, got %T", node)
	}

	var out []string
	for _, e := range list {
		if mm, ok := e.(*Mapping); ok {
			e, _ = mm.Get("executable")
		}
		s, ok := e.(string)
		if !ok {
			continue
		}
		if name, ok := strings.CutPrefix(s, "bin/"); ok {
			out = append(out, name)
		} else if name, ok := strings.CutPrefix(s, "sbin/"); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// Dependencies returns one level of dependencies for host. Build and test
// dependencies live under build.dependencies and test.dependencies.
func (m *Manifest) Dependencies(host platform.Host) (Deps, error) {
	var (
		d   Deps
		err error
	)
	if d.Runtime, err = m.requirements(m.root, "dependencies", host); err != nil {
		return Deps{}, err
	}
	if phase, ok := m.phaseMapping(PhaseBuild); ok {
		if d.Build, err = m.requirements(phase, "build.dependencies", host); err != nil {
			return Deps{}, err
		}
	}
	if phase, ok := m.phaseMapping(PhaseTest); ok {
		if d.Test, err = m.requirements(phase, "test.dependencies", host); err != nil {
			return Deps{}, err
		}
	}
	return d, nil
}

func (m *Manifest) phaseMapping(phase string) (*Mapping, bool) {
	v, _ := m.root.Get(phase)
	mm, ok := v.(*Mapping)
	return mm, ok
}

func (m *Manifest) requirements(parent *Mapping, field string, host platform.Host) ([]pkgspec.Requirement, error) {
	node, _ := parent.Get("dependencies")
	if node == nil {
		return nil, nil
	}
	deps, ok := node.(*Mapping)
	if !ok {
		return nil, ManifestErrorf(m.Project, field, "expected a mapping, got %T", node)
	}
	reduced, err := PlatformReduce(deps, host)
	if err != nil {
		return nil, ManifestErrorf(m.Project, field, "%v", err)
	}

	var out []pkgspec.Requirement
	for project, constraint := range reduced.All() {
		req, err := requirement(project, constraint)
		if err != nil {
			return nil, ManifestErrorf(m.Project, field+"."+project, "%v", err)
		}
		out = append(out, req)
	}
	return out, nil
}

// requirement converts a dependency entry. Bare numbers mean "^N".
func requirement(project string, constraint any) (pkgspec.Requirement, error) {
	var expr string
	switch c := constraint.(type) {
	case string:
		expr = c
	case int:
		expr = "^" + strconv.Itoa(c)
	case float64:
		expr = "^" + strconv.FormatFloat(c, 'f', -1, 64)
	case nil:
		expr = "*"
	default:
		return pkgspec.Requirement{}, fmt.Errorf("invalid constraint %v", constraint)
	}

	r, err := semver.ParseRange(expr)
	if err != nil {
		return pkgspec.Requirement{}, err
	}
	return pkgspec.Requirement{Project: project, Constraint: r}, nil
}

// Distributable returns the source location of pkg for host with version and
// host tokens expanded, or nil when the manifest has none.
func (m *Manifest) Distributable(pkg pkgspec.Package, host platform.Host) (*Distributable, error) {
	node, _ := m.root.Get("distributable")
	if node == nil {
		return nil, nil
	}

	tokens := moustache.Fold(moustache.Version(pkg.Version, "version"), moustache.Host(host))
	expand := func(field, s string) (string, error) {
		out, err := tokens.Apply(s)
		if err != nil {
			return "", ManifestErrorf(m.Project, field, "%v", err)
		}
		return out, nil
	}

	var (
		raw   string
		strip int
	)
	switch n := node.(type) {
	case string:
		raw = n
	case *Mapping:
		if git, ok := n.Get("git"); ok {
			return m.gitDistributable(n, git, expand)
		}
		u, _ := n.Get("url")
		s, ok := u.(string)
		if !ok {
			return nil, ManifestErrorf(m.Project, "distributable.url", "expected a string, got %T", u)
		}
		raw = s
		if sc, ok := n.Get("strip-components"); ok {
			if i, ok := sc.(int); ok {
				strip = i
			}
		}
	default:
		return nil, ManifestErrorf(m.Project, "distributable", "expected a string or mapping, got %T", node)
	}

	expanded, err := expand("distributable.url", raw)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(expanded); err != nil {
		return nil, ManifestErrorf(m.Project, "distributable.url", "%v", err)
	}
	return &Distributable{Type: DistributableURL, URL: expanded, StripComponents: strip}, nil
}

func (m *Manifest) gitDistributable(n *Mapping, git any, expand func(string, string) (string, error)) (*Distributable, error) {
	s, ok := git.(string)
	if !ok || !strings.HasPrefix(s, "git+") {
		return nil, ManifestErrorf(m.Project, "distributable.git", "invalid git url; explicitly use git+https:// or git+ssh://: %v", git)
	}
	if rest, ok := strings.CutPrefix(s, "git+http"); ok {
		s = "http" + rest
	}
	s, err := expand("distributable.git", s)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(s); err != nil {
		return nil, ManifestErrorf(m.Project, "distributable.git", "%v", err)
	}

	var ref string
	if refNode, _ := n.Get("ref"); refNode != nil {
		if ref, err = expand("distributable.ref", fmt.Sprint(refNode)); err != nil {
			return nil, err
		}
	}
	return &Distributable{Type: DistributableGit, URL: s, Ref: ref}, nil
}
