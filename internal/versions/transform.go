// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// ErrTransform is returned when a transform script fails to run.
var ErrTransform = errors.New("failed to run version transformer")

const defaultTransformTimeout = 30 * time.Second

type (
	// Transformed pairs a transform result with the name it came from.
	Transformed struct {
		Version  string
		Original string
	}

	// Transformer maps raw names through a manifest-supplied function such
	// as "v => v.replace(/^release-/, '')".
	Transformer interface {
		Transform(ctx context.Context, fn string, names []string) ([]Transformed, error)
	}

	// ExecTransformer runs the function in a separate JavaScript runtime
	// process. The manifest code never runs in-process: the child gets a
	// fixed environment, an empty HOME and a hard timeout.
	ExecTransformer struct {
		// Command reads a script on stdin, e.g. ["deno", "run", "--quiet", "--no-prompt", "-"].
		Command []string
		// Path is the PATH given to the child.
		Path string
		// Timeout bounds the whole run. Zero means 30s.
		Timeout time.Duration
	}
)

// Script renders the program fed to the runtime: it applies fn to every
// name and prints "<result> <name>" per line.
func Script(fn string, names []string) (string, error) {
	list, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("const transform = %s\nfor (const v of %s) {\n  console.log(transform(v), v)\n}\n", fn, list), nil
}

// Transform implements Transformer.
func (t ExecTransformer) Transform(ctx context.Context, fn string, names []string) ([]Transformed, error) {
	if len(t.Command) == 0 {
		return nil, fmt.Errorf("%w: no transform command configured", ErrTransform)
	}
	if len(names) == 0 {
		return nil, nil
	}

	script, err := Script(fn, names)
	if err != nil {
		return nil, err
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultTransformTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	home, err := os.MkdirTemp("", "brewkit-transform-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(home) }() // best-effort cleanup

	cmd := exec.CommandContext(ctx, t.Command[0], t.Command[1:]...)
	cmd.Stdin = strings.NewReader(script)
	cmd.Dir = home
	cmd.Env = []string{
		"PATH=" + t.Path,
		"HOME=" + home,
		"NO_COLOR=1",
		"DENO_NO_UPDATE_CHECK=1",
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransform, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w: %s", ErrTransform, err, strings.TrimSpace(stderr.String()))
	}
	return ParseTransformOutput(stdout.String(), names), nil
}

// ParseTransformOutput reads "<result> <original>" lines. Lines whose
// original is not one of names are dropped.
func ParseTransformOutput(out string, names []string) []Transformed {
	var rv []Transformed
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		result, original, ok := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		if !ok || result == "" || !slices.Contains(names, original) {
			continue
		}
		rv = append(rv, Transformed{Version: result, Original: original})
	}
	return rv
}
