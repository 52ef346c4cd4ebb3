// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// ErrNoVersion is returned when no discovered version satisfies a constraint.
var ErrNoVersion = errors.New("no version satisfies constraint")

type (
	// NoVersionError wraps ErrNoVersion.
	NoVersionError struct {
		Requirement pkgspec.Requirement
		// Available is how many versions were discovered.
		Available int
	}

	// Manifests loads a project's manifest.
	Manifests interface {
		Load(project string) (*pantry.Manifest, error)
	}

	// Discoverer lists the versions a versions node describes.
	Discoverer interface {
		Discover(ctx context.Context, project string, node any) ([]semver.Version, error)
	}

	// Resolver binds requirements to concrete packages. It holds no state
	// between calls and is safe for concurrent use when its collaborators
	// are.
	Resolver struct {
		manifests  Manifests
		discoverer Discoverer
	}
)

func (e *NoVersionError) Error() string {
	if e.Available == 0 {
		return fmt.Sprintf("no versions found for %s", e.Requirement.Project)
	}
	return fmt.Sprintf("none of the %d versions of %s satisfy %s",
		e.Available, e.Requirement.Project, e.Requirement.Constraint)
}

func (e *NoVersionError) Unwrap() error { return ErrNoVersion }

// New creates a Resolver.
func New(m Manifests, d Discoverer) *Resolver {
	return &Resolver{manifests: m, discoverer: d}
}

// Versions returns every version of project, sorted ascending.
func (r *Resolver) Versions(ctx context.Context, project string) ([]semver.Version, error) {
	m, err := r.manifests.Load(project)
	if err != nil {
		return nil, err
	}
	node, err := m.Versions()
	if err != nil {
		return nil, err
	}
	return r.discoverer.Discover(ctx, project, node)
}

// Resolve returns the highest version of req.Project that satisfies
// req.Constraint. Upstream failures are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, req pkgspec.Requirement) (pkgspec.Package, error) {
	vs, err := r.Versions(ctx, req.Project)
	if err != nil {
		return pkgspec.Package{}, err
	}
	v, ok := req.Constraint.Max(vs)
	if !ok {
		return pkgspec.Package{}, &NoVersionError{Requirement: req, Available: len(vs)}
	}
	slog.Debug("resolved", "requirement", req.String(), "version", v.String(), "tag", v.Tag)
	return pkgspec.Package{Project: req.Project, Version: v}, nil
}
