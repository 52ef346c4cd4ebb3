// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/internal/versions"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

type manifestMap map[string]string

func (m manifestMap) Load(project string) (*pantry.Manifest, error) {
	src, ok := m[project]
	if !ok {
		return nil, &pantry.NotFoundError{Name: project}
	}
	return pantry.ParseManifest(project, project+"/package.yml", []byte(src))
}

type failingDiscoverer struct{ err error }

func (f failingDiscoverer) Discover(context.Context, string, any) ([]semver.Version, error) {
	return nil, f.err
}

func mustRequirement(t *testing.T, s string) pkgspec.Requirement {
	t.Helper()
	req, err := pkgspec.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestResolve(t *testing.T) {
	t.Parallel()

	manifests := manifestMap{
		"example.com/foo": "versions:\n  - 1.0.0\n  - 1.2.0\n  - 2.0.0\n  - 1.10.1\n",
		"example.com/bar": "build: make\n",
	}
	r := New(manifests, &versions.Discoverer{})

	tests := []struct {
		spec    string
		want    string
		wantErr error
	}{
		{spec: "example.com/foo", want: "example.com/foo=2.0.0"},
		{spec: "example.com/foo^1", want: "example.com/foo=1.10.1"},
		{spec: "example.com/foo~1.2", want: "example.com/foo=1.2.0"},
		{spec: "example.com/foo@1.0", want: "example.com/foo=1.0.0"},
		{spec: "example.com/foo>=3", wantErr: ErrNoVersion},
		{spec: "example.com/missing", wantErr: pantry.ErrNotFound},
		{spec: "example.com/bar", wantErr: pantry.ErrManifest},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			pkg, err := r.Resolve(context.Background(), mustRequirement(t, tt.spec))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%s) error = %v, want %v", tt.spec, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pkg.String() != tt.want {
				t.Errorf("Resolve(%s) = %s, want %s", tt.spec, pkg, tt.want)
			}
		})
	}
}

func TestResolve_NoVersionError(t *testing.T) {
	t.Parallel()

	r := New(manifestMap{"example.com/foo": "versions: [1.0.0, 1.1.0]\n"}, &versions.Discoverer{})
	_, err := r.Resolve(context.Background(), mustRequirement(t, "example.com/foo^2"))

	var nv *NoVersionError
	if !errors.As(err, &nv) {
		t.Fatalf("expected NoVersionError, got %v", err)
	}
	if nv.Available != 2 || nv.Requirement.Project != "example.com/foo" {
		t.Errorf("unexpected error fields: %+v", nv)
	}
	if want := "none of the 2 versions of example.com/foo satisfy ^2"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestResolve_PropagatesUpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := &versions.UpstreamError{Source: "github", URL: "https://api.github.com/graphql", Status: 502}
	r := New(manifestMap{"example.com/foo": "versions:\n  github: o/r\n"}, failingDiscoverer{err: upstream})

	_, err := r.Resolve(context.Background(), mustRequirement(t, "example.com/foo"))
	if !errors.Is(err, versions.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestVersions_Sorted(t *testing.T) {
	t.Parallel()

	r := New(manifestMap{"example.com/foo": "versions: [3, 1.2.3, '1.10']\n"}, &versions.Discoverer{})
	vs, err := r.Versions(context.Background(), "example.com/foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, v := range vs {
		got = append(got, v.String())
	}
	want := []string{"1.2.3", "1.10.0", "3.0.0"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("versions[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
