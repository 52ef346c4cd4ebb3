// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
)

// Paths are the directories a build or test of one package uses.
type Paths struct {
	// Install is the final keg: <pkgx>/<project>/v<version>.
	Install string `json:"install"`
	// BuildInstall is where the build stages its output before it is moved
	// into Install.
	BuildInstall string `json:"build_install"`
	// Home is the fresh HOME given to builds.
	Home string `json:"home"`
	// Src is the extracted source tree.
	Src string `json:"src"`
	// Build is the working directory of the build script.
	Build string `json:"build"`
	// Testbed is the working directory of the test script.
	Testbed string `json:"testbed"`
	// TarballDir stores downloaded source archives.
	TarballDir string `json:"tarball_dir"`
	// Cache persists between builds.
	Cache string `json:"cache"`
}

// KegPath returns <pkgx>/<project>/v<version>.
func (c *Config) KegPath(pkg pkgspec.Package) string {
	return filepath.Join(c.PkgxDir, pkg.Project, "v"+pkg.Version.String())
}

// PathsFor lays out the directories for pkg on host. With a pantry checkout
// everything lives beside it, keyed by "<project with / as __>-<version>".
// Otherwise it lives under <data home>/brewkit/<platform>+<arch>/<project>/v<version>.
func (c *Config) PathsFor(pkg pkgspec.Package, host platform.Host) Paths {
	install := c.KegPath(pkg)
	p := Paths{
		Install:      install,
		BuildInstall: install + "+brewing",
		Cache:        c.CacheHome,
	}

	if c.PantryCheckout != "" {
		slug := strings.ReplaceAll(pkg.Project, "/", "__") + "-" + pkg.Version.String()
		p.Home = filepath.Join(c.PantryCheckout, "homes", slug)
		p.Src = filepath.Join(c.PantryCheckout, "srcs", slug)
		p.Build = filepath.Join(c.PantryCheckout, "builds", slug)
		p.Testbed = filepath.Join(c.PantryCheckout, "testbeds", slug)
		p.TarballDir = filepath.Join(c.PantryCheckout, "srcs")
		return p
	}

	datahome := filepath.Join(c.DataHome, AppName)
	root := filepath.Join(datahome, host.Platform+"+"+host.Arch, pkg.Project, "v"+pkg.Version.String())
	p.Home = root
	p.Src = filepath.Join(root, "src")
	p.Build = filepath.Join(root, "build")
	p.Testbed = filepath.Join(root, "testbed")
	p.TarballDir = datahome
	return p
}
