// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/moustache"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/pkg/pkgspec"
	"github.com/brewkit-dev/brewkit/pkg/platform"
)

// Phase selects the manifest node a script is rendered from.
type Phase string

const (
	Build Phase = pantry.PhaseBuild
	Test  Phase = pantry.PhaseTest
)

// fixtureKey is the step key holding inline file content for the phase.
func (p Phase) fixtureKey() string {
	if p == Build {
		return "prop"
	}
	return "fixture"
}

// Context carries everything about the machine a script is generated for.
// Nothing is read from the process environment.
type Context struct {
	Host    platform.Host
	PkgxDir string
	// Home is substituted for {{home}} in env values.
	Home string
	// InstallPath is the final keg; {{prefix}} in the test phase.
	InstallPath string
	// BuildInstallPath is the staging keg; {{prefix}} in the build phase.
	BuildInstallPath string
	// BuildDir is {{srcroot}}, with {{props}} beneath it.
	BuildDir string
}

func (c Context) prefix(phase Phase) string {
	if phase == Build {
		return c.BuildInstallPath
	}
	return c.InstallPath
}

// Tokens returns the complete token map for phase. The phase's install path
// is bound to {{prefix}} last, overriding any earlier binding.
func Tokens(pkg pkgspec.Package, phase Phase, deps []pkgspec.Installation, ctx Context) *moustache.Map {
	prefix := ctx.prefix(phase)
	tokens := moustache.All(moustache.Inputs{
		Pkg:     pkg,
		Deps:    deps,
		Host:    ctx.Host,
		Prefix:  prefix,
		PkgxDir: ctx.PkgxDir,
	})
	if phase == Build {
		tokens = append(tokens,
			moustache.Token{From: "srcroot", To: ctx.BuildDir},
			moustache.Token{From: "props", To: filepath.Join(ctx.BuildDir, "props")},
		)
	}
	return moustache.Fold(tokens, moustache.Package(prefix))
}

// generator renders one script. It is built fresh for every call.
type generator struct {
	pkg    pkgspec.Package
	phase  Phase
	ctx    Context
	tokens *moustache.Map
}

// GetScript renders the build or test node of m for pkg. The node is a
// string, a list of lines and steps, or a mapping with `script` plus
// optional `env` and `working-directory`. Steps whose `if` does not hold
// render as empty strings. Output is deterministic for identical inputs.
func GetScript(m *pantry.Manifest, pkg pkgspec.Package, phase Phase, deps []pkgspec.Installation, ctx Context) (string, error) {
	if phase != Build && phase != Test {
		return "", fmt.Errorf("unknown phase %q", phase)
	}
	node, err := m.Script(string(phase))
	if err != nil {
		return "", err
	}

	g := &generator{
		pkg:    pkg,
		phase:  phase,
		ctx:    ctx,
		tokens: Tokens(pkg, phase, deps, ctx),
	}

	obj, ok := node.(*pantry.Mapping)
	if !ok {
		return g.script(node, string(phase))
	}
	return g.object(obj)
}

func (g *generator) errorf(field, format string, args ...any) error {
	return pantry.ManifestErrorf(g.pkg.Project, field, format, args...)
}

func (g *generator) apply(field, text string) (string, error) {
	out, err := g.tokens.Apply(text)
	if err != nil {
		return "", g.errorf(field, "%v", err)
	}
	return out, nil
}

// object renders the {script, env, working-directory} form.
func (g *generator) object(obj *pantry.Mapping) (string, error) {
	field := string(g.phase)
	node, _ := obj.Get("script")
	raw, err := g.script(node, field+".script")
	if err != nil {
		return "", err
	}

	if wdNode, _ := obj.Get("working-directory"); wdNode != nil {
		wd, err := g.workingDirectory(wdNode, field+".working-directory")
		if err != nil {
			return "", err
		}
		raw = "mkdir -p " + wd + "\ncd " + wd + "\n\n" + raw
	}

	if envNode, _ := obj.Get("env"); envNode != nil {
		env, ok := envNode.(*pantry.Mapping)
		if ok {
			vars, err := FlattenEnv(env, g.ctx.Host, g.envTokens())
			if err != nil {
				return "", g.errorf(field+".env", "%v", err)
			}
			raw = Exports(vars) + "\n\n" + raw
		}
	}
	return raw, nil
}

// workingDirectory expands the script-level working directory. Only the
// version, host and prefix tokens are available there.
func (g *generator) workingDirectory(node any, field string) (string, error) {
	s, ok := scalarText(node)
	if !ok {
		return "", g.errorf(field, "expected a string, got %T", node)
	}
	tokens := moustache.Fold(
		moustache.Version(g.pkg.Version, "version"),
		moustache.Host(g.ctx.Host),
		moustache.Package(g.ctx.prefix(g.phase)),
	)
	wd, err := tokens.Apply(s)
	if err != nil {
		return "", g.errorf(field, "%v", err)
	}
	return wd, nil
}

// envTokens are the script tokens plus {{home}}.
func (g *generator) envTokens() *moustache.Map {
	return moustache.Fold([]moustache.Token{{From: "home", To: g.ctx.Home}}, g.tokens.Tokens())
}

// script renders a string or a list of lines and steps.
func (g *generator) script(node any, field string) (string, error) {
	switch node := node.(type) {
	case string:
		return g.apply(field, node)
	case []any:
		parts := make([]string, len(node))
		for i, item := range node {
			itemField := field + "[" + strconv.Itoa(i) + "]"
			if step, ok := item.(*pantry.Mapping); ok {
				out, err := g.step(step, itemField)
				if err != nil {
					return "", err
				}
				parts[i] = out
				continue
			}
			s, ok := scalarText(item)
			if !ok {
				return "", g.errorf(itemField, "expected a string or a step, got %T", item)
			}
			out, err := g.apply(itemField, s)
			if err != nil {
				return "", err
			}
			parts[i] = strings.TrimSpace(out)
		}
		return strings.Join(parts, "\n\n"), nil
	case nil:
		return "", g.errorf(field, "missing")
	}
	return "", g.errorf(field, "script node is not a string or a list, got %T", node)
}

// step renders one step object.
func (g *generator) step(step *pantry.Mapping, field string) (string, error) {
	ifNode, _ := step.Get("if")
	cond, err := ParseCondition(ifNode)
	if err != nil {
		return "", g.errorf(field+".if", "%v", err)
	}
	if !cond.Holds(g.ctx.Host, g.pkg.Version) {
		return "", nil
	}

	run, err := g.run(step, field+".run")
	if err != nil {
		return "", err
	}

	if cdNode, _ := step.Get("working-directory"); cdNode != nil {
		cd, ok := scalarText(cdNode)
		if !ok {
			return "", g.errorf(field+".working-directory", "expected a string, got %T", cdNode)
		}
		if cd, err = g.apply(field+".working-directory", cd); err != nil {
			return "", err
		}
		run = wrapWorkingDirectory(cd, run)
	}

	if run, err = g.fixture(step, field, run); err != nil {
		return "", err
	}
	return strings.TrimSpace(run), nil
}

func (g *generator) run(step *pantry.Mapping, field string) (string, error) {
	node, ok := step.Get("run")
	if !ok || node == nil {
		return "", g.errorf(field, "every step must contain a `run` key")
	}
	switch node := node.(type) {
	case []any:
		lines := make([]string, len(node))
		for i, item := range node {
			s, ok := scalarText(item)
			if !ok {
				return "", g.errorf(fmt.Sprintf("%s[%d]", field, i), "expected a string, got %T", item)
			}
			line, err := g.apply(field, s)
			if err != nil {
				return "", err
			}
			lines[i] = line
		}
		return strings.Join(lines, "\n"), nil
	case string:
		return g.apply(field, node)
	}
	return "", g.errorf(field, "expected a string or a list of lines, got %T", node)
}

// wrapWorkingDirectory runs body in dir and returns to the previous
// directory afterward.
func wrapWorkingDirectory(dir, body string) string {
	return "OLDWD=\"$PWD\"\n" +
		"mkdir -p \"" + dir + "\"\n" +
		"cd \"" + dir + "\"\n" +
		strings.TrimSpace(body) + "\n" +
		"cd \"$OLDWD\"\n" +
		"unset OLDWD"
}

// scalarText renders YAML scalars as text.
func scalarText(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}
