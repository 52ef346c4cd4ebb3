// SPDX-License-Identifier: MPL-2.0

package stowage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

const (
	// Bottle is a built keg for one platform/arch.
	Bottle Kind = "bottle"
	// Source is an upstream source archive.
	Source Kind = "src"

	Gzip Compression = "gz"
	XZ   Compression = "xz"

	// slash stands in for "/" in project names so a filename stays one path
	// component.
	slash = "∕"
)

// ErrInvalid is returned for archives with an unknown kind or compression.
var ErrInvalid = errors.New("invalid archive")

var (
	bottleRegex = regexp.MustCompile(`^(.*)-(\d+(?:\.\d+)*[a-z]?)\+(.+?)\+(.+?)\.tar\.([gx]z)$`)
	srcRegex    = regexp.MustCompile(`^(.*)-(\d+(?:\.\d+)*[a-z]?)\.tar\.([gx]z)$`)
)

type (
	// Kind distinguishes bottles from source archives.
	Kind string

	// Compression is the archive's compression suffix.
	Compression string

	// Stowed describes an archive identified by its filename.
	Stowed struct {
		Pkg         pkgspec.Package
		Kind        Kind
		Compression Compression
		// Host is set for bottles only.
		Host platform.Host
		// Path is where the archive was found, if decoded from one.
		Path string `json:",omitempty"`
	}
)

// Decode identifies the archive at path from its base name. It reports false
// for names that are neither a bottle nor a source archive.
func Decode(path string) (Stowed, bool) {
	base := filepath.Base(path)

	if m := bottleRegex.FindStringSubmatch(base); m != nil {
		v, err := semver.ParseTolerant(m[2])
		if err != nil {
			return Stowed{}, false
		}
		return Stowed{
			Pkg:         pkgspec.Package{Project: unslash(m[1]), Version: v},
			Kind:        Bottle,
			Compression: Compression(m[5]),
			Host:        platform.Host{Platform: m[3], Arch: m[4]},
			Path:        path,
		}, true
	}

	if m := srcRegex.FindStringSubmatch(base); m != nil {
		v, err := semver.ParseTolerant(m[2])
		if err != nil {
			return Stowed{}, false
		}
		return Stowed{
			Pkg:         pkgspec.Package{Project: unslash(m[1]), Version: v},
			Kind:        Source,
			Compression: Compression(m[3]),
			Path:        path,
		}, true
	}
	return Stowed{}, false
}

// Validate checks the kind and compression. Bottles must also name a host
// before Filename is meaningful, which Validate does not require.
func (s Stowed) Validate() error {
	switch s.Kind {
	case Bottle, Source:
	default:
		return fmt.Errorf("%w: unknown kind %q (valid: bottle, src)", ErrInvalid, s.Kind)
	}
	switch s.Compression {
	case Gzip, XZ:
	default:
		return fmt.Errorf("%w: unknown compression %q (valid: gz, xz)", ErrInvalid, s.Compression)
	}
	return nil
}

// Extname returns ".tar.gz" or ".tar.xz".
func (s Stowed) Extname() string {
	return ".tar." + string(s.Compression)
}

// Filename returns the canonical archive name. Decode(s.Filename()) yields s
// without its Path.
func (s Stowed) Filename() string {
	name := strings.ReplaceAll(s.Pkg.Project, "/", slash) + "-" + s.Pkg.Version.String()
	if s.Kind == Bottle {
		name += "+" + s.Host.Platform + "+" + s.Host.Arch
	}
	return name + s.Extname()
}

func unslash(s string) string {
	return strings.ReplaceAll(s, slash, "/")
}
