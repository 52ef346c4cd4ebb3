// SPDX-License-Identifier: MPL-2.0

package buildscript

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/config"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/internal/script"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// binutils is the project whose ar/ranlib break links on darwin.
const binutils = "gnu.org/binutils"

type (
	// Tools are the host executables the wrapper refers to by path.
	Tools struct {
		// Bash is the interpreter in the shebang. Defaults to /bin/bash.
		Bash string
		// Pkgx, when set, loads the dependency environment.
		Pkgx string
		// Libexec is prepended to PATH in build scripts.
		Libexec string
	}

	// Inputs describe one build or test of a package.
	Inputs struct {
		Pkg     pkgspec.Package
		Host    platform.Host
		Paths   config.Paths
		PkgxDir string
		// Deps are the installed dependencies backing {{deps.*}} tokens.
		Deps []pkgspec.Installation
		// Runtime plus Build (or Test) are handed to pkgx to form the
		// environment the user script runs in.
		Runtime []pkgspec.Requirement
		Build   []pkgspec.Requirement
		Test    []pkgspec.Requirement
		Tools   Tools
	}

	// TestScript is a rendered test wrapper. When the manifest's test node
	// carries a top-level fixture, Fixture holds its content and the script
	// exports FIXTURE=FixturePath; the caller writes the file.
	TestScript struct {
		Text        string
		Fixture     string
		FixturePath string
	}
)

// ScriptContext maps the inputs onto the token context of the script generator.
func (in Inputs) ScriptContext() script.Context {
	return script.Context{
		Host:             in.Host,
		PkgxDir:          in.PkgxDir,
		Home:             in.Paths.Home,
		InstallPath:      in.Paths.Install,
		BuildInstallPath: in.Paths.BuildInstall,
		BuildDir:         in.Paths.Build,
	}
}

func (in Inputs) bash() string {
	if in.Tools.Bash == "" {
		return "/bin/bash"
	}
	return in.Tools.Bash
}

// Build renders the complete build script for m: environment preamble,
// platform compiler flags and then the user's build script run from the
// build directory.
func Build(m *pantry.Manifest, in Inputs) (string, error) {
	user, err := script.GetScript(m, in.Pkg, script.Build, in.Deps, in.ScriptContext())
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#!%s\n\n", in.bash())
	sb.WriteString("set -eo pipefail\n\n")

	sb.WriteString(heading("env"))
	sb.WriteString("  export PKGX_HOME=\"$HOME\"\n")
	path := "$PATH"
	if in.Tools.Libexec != "" {
		path = in.Tools.Libexec + ":" + path
	}
	fmt.Fprintf(&sb, "  export PATH=\"%s\"\n", path)
	sb.WriteString("  set -a\n")
	if plus := depArgs(in.Runtime, in.Build); plus != "" && in.Tools.Pkgx != "" {
		fmt.Fprintf(&sb, "  eval \"$(CLICOLOR_FORCE=1 %s %s)\"\n", in.Tools.Pkgx, plus)
	}
	sb.WriteString("  set +a\n\n")

	if in.Tools.Pkgx != "" {
		fmt.Fprintf(&sb, "  export PKGX=\"%s\"\n", in.Tools.Pkgx)
	}
	fmt.Fprintf(&sb, "  export HOME=%s\n", in.Paths.Home)
	fmt.Fprintf(&sb, "  export SRCROOT=%s\n", in.Paths.Build)
	fmt.Fprintf(&sb, "  %s\n", tmpdir(in.Host))
	sb.WriteString("  if [ -n \"$CI\" ]; then\n")
	sb.WriteString("    export FORCE_UNSAFE_CONFIGURE=1\n")
	sb.WriteString("  fi\n")
	sb.WriteString("  mkdir -p $HOME\n")
	for _, line := range Flags(in.Host, in.PkgxDir, in.Deps) {
		fmt.Fprintf(&sb, "  %s\n", line)
	}
	sb.WriteString("\n  env -u GH_TOKEN -u GITHUB_TOKEN\n\n")

	sb.WriteString(heading("pantry script start"))
	sb.WriteString("  set -x\n")
	fmt.Fprintf(&sb, "  cd %s\n\n", in.Paths.Build)

	sb.WriteString(user)
	sb.WriteString("\n")
	return sb.String(), nil
}

// Flags returns the export lines for the host's compiler and linker flags.
// Each flag is prepended to whatever the variable already holds.
func Flags(host platform.Host, pkgxDir string, deps []pkgspec.Installation) []string {
	var kv [][2]string
	switch {
	case host.Platform == platform.Darwin:
		kv = append(kv, [2]string{"LDFLAGS", "-Wl,-rpath," + pkgxDir})
	case host.Platform == platform.Linux && host.Arch == platform.X8664:
		kv = append(kv,
			[2]string{"LDFLAGS", "-pie"},
			[2]string{"CFLAGS", "-fPIC"},
			[2]string{"CXXFLAGS", "-fPIC"},
		)
	}

	lines := make([]string, 0, len(kv)+3)
	for _, f := range kv {
		lines = append(lines, fmt.Sprintf("export %s=\"%s $%s\"", f[0], f[1], f[0]))
	}
	if host.Platform == platform.Darwin {
		lines = append(lines, "export MACOSX_DEPLOYMENT_TARGET=11.0")
		if slices.ContainsFunc(deps, func(d pkgspec.Installation) bool { return d.Pkg.Project == binutils }) {
			lines = append(lines, "export AR=/usr/bin/ar", "export RANLIB=/usr/bin/ranlib")
		}
	}
	return lines
}

// Test renders the test wrapper for m. The user's test script runs from the
// testbed with errexit, pipefail and xtrace enabled.
func Test(m *pantry.Manifest, in Inputs) (TestScript, error) {
	user, err := script.GetScript(m, in.Pkg, script.Test, in.Deps, in.ScriptContext())
	if err != nil {
		return TestScript{}, err
	}

	var ts TestScript
	if node, ok := m.Node(pantry.PhaseTest); ok {
		if obj, ok := node.(*pantry.Mapping); ok {
			if f, _ := obj.Get("fixture"); f != nil {
				text, ok := f.(string)
				if !ok {
					return TestScript{}, pantry.ManifestErrorf(in.Pkg.Project, "test.fixture", "expected a string, got %T", f)
				}
				ts.Fixture = text
				ts.FixturePath = filepath.Join(in.Paths.Testbed, "dev.pkgx.fixture")
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#!%s\n\n", in.bash())
	sb.WriteString("set -e\nset -o pipefail\n\n")

	if in.Tools.Pkgx != "" {
		self := []pkgspec.Requirement{{Project: in.Pkg.Project, Constraint: semver.Exact(in.Pkg.Version)}}
		sb.WriteString(heading("env"))
		sb.WriteString("  export PKGX_HOME=\"$HOME\"\n")
		sb.WriteString("  set -a\n")
		fmt.Fprintf(&sb, "  eval \"$(CLICOLOR_FORCE=1 %s %s)\" || exit $?\n", in.Tools.Pkgx, depArgs(self, in.Runtime, in.Test))
		sb.WriteString("  set +a\n\n")
		sb.WriteString("command_not_found_handle() {\n")
		sb.WriteString("  echo \"::warning::\\`$1\\` is not an explicit dependency!\" 1>&2\n")
		sb.WriteString("  case $1 in\n")
		sb.WriteString("  cc|c++|ld)\n")
		fmt.Fprintf(&sb, "    %s +llvm.org -- \"$@\";;\n", in.Tools.Pkgx)
		sb.WriteString("  *)\n")
		fmt.Fprintf(&sb, "    %s \"$@\";;\n", in.Tools.Pkgx)
		sb.WriteString("  esac\n")
		sb.WriteString("}\n\n")
	}

	fmt.Fprintf(&sb, "export PKGX_DIR=\"%s\"\n", in.PkgxDir)
	fmt.Fprintf(&sb, "export HOME=\"%s\"\n", in.Paths.Home)
	sb.WriteString("mkdir -p \"$HOME\"\n\n")
	if ts.FixturePath != "" {
		fmt.Fprintf(&sb, "export FIXTURE=\"%s\"\n\n", ts.FixturePath)
	}
	sb.WriteString("env -u GH_TOKEN -u GITHUB_TOKEN\n\n")

	sb.WriteString(heading("pantry script start"))
	sb.WriteString("set -x\n")
	fmt.Fprintf(&sb, "cd \"%s\"\n\n", in.Paths.Testbed)

	sb.WriteString(user)
	sb.WriteString("\n")
	ts.Text = sb.String()
	return ts, nil
}

// passthrough lists the variables a test run inherits from the caller.
var passthrough = []string{"HOME", "PKGX_PANTRY_PATH", "GITHUB_TOKEN", "LANG", "LOGNAME", "USER", "TERM"}

// TestEnv returns the environment a test script runs with. Nothing else
// from the caller's environment is visible to it.
func TestEnv(pkgxDir string, lookup func(string) (string, bool)) map[string]string {
	env := map[string]string{
		"PATH":     "/usr/bin:/bin:/usr/sbin:/sbin",
		"PKGX_DIR": pkgxDir,
	}
	for _, key := range passthrough {
		if v, ok := lookup(key); ok && v != "" {
			env[key] = v
		}
	}
	if token, ok := env["GITHUB_TOKEN"]; ok {
		env["GH_TOKEN"] = token
	}
	return env
}

func heading(title string) string {
	return fmt.Sprintf("printf '%%s\\n' \"## %s\"\n", title)
}

func tmpdir(host platform.Host) string {
	if host.Platform == platform.Windows {
		return `export TMP="$HOME/tmp"; export TEMP="$HOME/tmp"; mkdir -p "$TMP"`
	}
	return `export TMPDIR="$HOME/tmp"; mkdir -p "$TMPDIR"`
}

// depArgs renders requirements as pkgx "+project<constraint>" arguments.
func depArgs(groups ...[]pkgspec.Requirement) string {
	var args []string
	for _, reqs := range groups {
		for _, r := range reqs {
			args = append(args, `"+`+r.String()+`"`)
		}
	}
	return strings.Join(args, " ")
}
