// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// binaryPath is the brewkit binary the txtar scripts run.
var binaryPath string

func TestMain(m *testing.M) {
	os.Exit(runWithBinary(m))
}

func runWithBinary(m *testing.M) int {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	binDir, err := os.MkdirTemp("", "brewkit-cli-")
	if err != nil {
		panic("failed to create bin directory: " + err.Error())
	}
	defer func() { _ = os.RemoveAll(binDir) }()

	binaryName := "brewkit"
	if goruntime.GOOS == "windows" {
		binaryName = "brewkit.exe"
	}
	binaryPath = filepath.Join(binDir, binaryName)

	cmd := exec.CommandContext(context.Background(), "go", "build", "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build brewkit: " + err.Error())
	}

	return m.Run()
}

// TestCLI runs the txtar scripts in testdata. Each script gets a pantry
// under $WORK/pantry and a host pinned to linux/x86-64 with two cores.
func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI integration tests in short mode")
	}

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			binDir := filepath.Dir(binaryPath)
			env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))

			env.Setenv("HOME", filepath.Join(env.WorkDir, "home"))
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, "config"))
			env.Setenv("XDG_DATA_HOME", filepath.Join(env.WorkDir, "data"))
			env.Setenv("XDG_CACHE_HOME", filepath.Join(env.WorkDir, "cache"))
			env.Setenv("PKGX_DIR", filepath.Join(env.WorkDir, "pkgx"))
			env.Setenv("PKGX_PANTRY_PATH", filepath.Join(env.WorkDir, "pantry"))
			env.Setenv("BREWKIT_HOST_PLATFORM", "linux")
			env.Setenv("BREWKIT_HOST_ARCH", "x86-64")
			env.Setenv("BREWKIT_HOST_CONCURRENCY", "2")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		ContinueOnError: true,
	})
}
