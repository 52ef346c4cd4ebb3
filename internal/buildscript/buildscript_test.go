// SPDX-License-Identifier: MPL-2.0

package buildscript

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/brewkit-dev/brewkit/internal/config"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

const manifestYAML = `
build:
  env:
    CC: clang
  script:
    - ./configure --prefix={{prefix}}
    - make install
test:
  fixture: |
    hello world
  script: grep hello $FIXTURE
`

func inputs(host platform.Host) Inputs {
	pkg := pkgspec.Package{Project: "example.com/foo", Version: semver.MustParse("1.2.3")}
	cfg := &config.Config{PkgxDir: "/opt/pkgx", DataHome: "/data"}
	return Inputs{
		Pkg:     pkg,
		Host:    host,
		Paths:   cfg.PathsFor(pkg, host),
		PkgxDir: cfg.PkgxDir,
		Deps: []pkgspec.Installation{{
			Pkg:  pkgspec.Package{Project: "gnu.org/binutils", Version: semver.MustParse("2.42.0")},
			Path: "/opt/pkgx/gnu.org/binutils/v2.42.0",
		}},
		Runtime: []pkgspec.Requirement{{Project: "zlib.net", Constraint: semver.MustParseRange("^1")}},
		Build:   []pkgspec.Requirement{{Project: "gnu.org/make", Constraint: semver.Any()}},
		Test:    []pkgspec.Requirement{{Project: "gnu.org/grep", Constraint: semver.Any()}},
		Tools:   Tools{Bash: "/usr/bin/bash", Pkgx: "/usr/local/bin/pkgx", Libexec: "/opt/brewkit/libexec"},
	}
}

var linux = platform.Host{Platform: platform.Linux, Arch: platform.X8664, Concurrency: 2}

func parse(t *testing.T, text string) {
	t.Helper()
	if _, err := syntax.NewParser().Parse(strings.NewReader(text), "wrapper"); err != nil {
		t.Fatalf("wrapper does not parse: %v\n%s", err, text)
	}
}

func mustManifest(t *testing.T, src string) *pantry.Manifest {
	t.Helper()
	m, err := pantry.ParseManifest("example.com/foo", "package.yml", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuild(t *testing.T) {
	t.Parallel()

	in := inputs(linux)
	text, err := Build(mustManifest(t, manifestYAML), in)
	if err != nil {
		t.Fatal(err)
	}
	parse(t, text)

	for _, want := range []string{
		"#!/usr/bin/bash\n\nset -eo pipefail\n",
		`export PATH="/opt/brewkit/libexec:$PATH"`,
		`eval "$(CLICOLOR_FORCE=1 /usr/local/bin/pkgx "+zlib.net^1" "+gnu.org/make")"`,
		`export PKGX="/usr/local/bin/pkgx"`,
		"export HOME=" + in.Paths.Home + "\n",
		"export SRCROOT=" + in.Paths.Build + "\n",
		`export TMPDIR="$HOME/tmp"; mkdir -p "$TMPDIR"`,
		`export LDFLAGS="-pie $LDFLAGS"`,
		`export CFLAGS="-fPIC $CFLAGS"`,
		"env -u GH_TOKEN -u GITHUB_TOKEN",
		"  set -x\n  cd " + in.Paths.Build + "\n\nexport CC=\"clang\"\n\n./configure --prefix=/opt/pkgx/example.com/foo/v1.2.3+brewing\n\nmake install\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("build script missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "MACOSX_DEPLOYMENT_TARGET") {
		t.Error("darwin flags leaked into a linux build")
	}
}

func TestBuild_WithoutPkgx(t *testing.T) {
	t.Parallel()

	in := inputs(linux)
	in.Tools = Tools{}
	text, err := Build(mustManifest(t, manifestYAML), in)
	if err != nil {
		t.Fatal(err)
	}
	parse(t, text)
	if !strings.HasPrefix(text, "#!/bin/bash\n") {
		t.Errorf("default shebang missing: %q", text[:20])
	}
	if strings.Contains(text, "eval") || strings.Contains(text, "PKGX=") {
		t.Errorf("pkgx lines rendered without pkgx:\n%s", text)
	}
}

func TestBuild_ManifestError(t *testing.T) {
	t.Parallel()

	_, err := Build(mustManifest(t, "test: echo hi\n"), inputs(linux))
	if !errors.Is(err, pantry.ErrManifest) {
		t.Fatalf("expected ErrManifest, got %v", err)
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	binutils := []pkgspec.Installation{{Pkg: pkgspec.Package{Project: "gnu.org/binutils"}}}
	tests := []struct {
		name string
		host platform.Host
		deps []pkgspec.Installation
		want []string
	}{
		{
			name: "linux x86-64",
			host: linux,
			want: []string{
				`export LDFLAGS="-pie $LDFLAGS"`,
				`export CFLAGS="-fPIC $CFLAGS"`,
				`export CXXFLAGS="-fPIC $CXXFLAGS"`,
			},
		},
		{
			name: "linux aarch64",
			host: platform.Host{Platform: platform.Linux, Arch: platform.AArch64},
			want: []string{},
		},
		{
			name: "darwin",
			host: platform.Host{Platform: platform.Darwin, Arch: platform.AArch64},
			want: []string{
				`export LDFLAGS="-Wl,-rpath,/opt/pkgx $LDFLAGS"`,
				"export MACOSX_DEPLOYMENT_TARGET=11.0",
			},
		},
		{
			name: "darwin with binutils",
			host: platform.Host{Platform: platform.Darwin, Arch: platform.X8664},
			deps: binutils,
			want: []string{
				`export LDFLAGS="-Wl,-rpath,/opt/pkgx $LDFLAGS"`,
				"export MACOSX_DEPLOYMENT_TARGET=11.0",
				"export AR=/usr/bin/ar",
				"export RANLIB=/usr/bin/ranlib",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Flags(tt.host, "/opt/pkgx", tt.deps)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Flags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTest(t *testing.T) {
	t.Parallel()

	in := inputs(linux)
	ts, err := Test(mustManifest(t, manifestYAML), in)
	if err != nil {
		t.Fatal(err)
	}
	parse(t, ts.Text)

	if ts.Fixture != "hello world\n" {
		t.Errorf("fixture = %q", ts.Fixture)
	}
	if ts.FixturePath != in.Paths.Testbed+"/dev.pkgx.fixture" {
		t.Errorf("fixture path = %q", ts.FixturePath)
	}
	for _, want := range []string{
		"set -e\nset -o pipefail\n",
		`"+example.com/foo=1.2.3" "+zlib.net^1" "+gnu.org/grep"`,
		"command_not_found_handle() {",
		`export PKGX_DIR="/opt/pkgx"`,
		`export HOME="` + in.Paths.Home + `"`,
		`export FIXTURE="` + ts.FixturePath + `"`,
		"set -x\ncd \"" + in.Paths.Testbed + "\"\n\ngrep hello $FIXTURE\n",
	} {
		if !strings.Contains(ts.Text, want) {
			t.Errorf("test script missing %q:\n%s", want, ts.Text)
		}
	}
}

func TestTest_NoFixture(t *testing.T) {
	t.Parallel()

	in := inputs(linux)
	in.Tools.Pkgx = ""
	ts, err := Test(mustManifest(t, "test: echo ok\n"), in)
	if err != nil {
		t.Fatal(err)
	}
	parse(t, ts.Text)
	if ts.Fixture != "" || ts.FixturePath != "" || strings.Contains(ts.Text, "FIXTURE") {
		t.Errorf("unexpected fixture in %+v", ts)
	}
	if strings.Contains(ts.Text, "command_not_found_handle") {
		t.Error("pkgx fallback rendered without pkgx")
	}
}

func TestTestEnv(t *testing.T) {
	t.Parallel()

	outer := map[string]string{
		"HOME":         "/home/me",
		"GITHUB_TOKEN": "tok",
		"AWS_SECRET":   "nope",
		"LANG":         "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := outer[k]
		return v, ok
	}
	want := map[string]string{
		"PATH":         "/usr/bin:/bin:/usr/sbin:/sbin",
		"PKGX_DIR":     "/opt/pkgx",
		"HOME":         "/home/me",
		"GITHUB_TOKEN": "tok",
		"GH_TOKEN":     "tok",
	}
	if diff := cmp.Diff(want, TestEnv("/opt/pkgx", lookup)); diff != "" {
		t.Errorf("TestEnv mismatch (-want +got):\n%s", diff)
	}
}
