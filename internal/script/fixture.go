// SPDX-License-Identifier: MPL-2.0

package script

import (
	"strings"

	"github.com/brewkit-dev/brewkit/internal/pantry"
)

// heredocMarker terminates inline fixture content.
const heredocMarker = "DEV_PKGX_EOF"

// fixture wraps run so that the step's inline file (prop for builds,
// fixture for tests) exists in a temp file named by $PROP or $FIXTURE while
// run executes. A value the variable already had is restored afterward.
func (g *generator) fixture(step *pantry.Mapping, field, run string) (string, error) {
	key := g.phase.fixtureKey()
	node, ok := step.Get(key)
	if !ok || node == nil {
		return run, nil
	}
	field += "." + key

	var (
		content string
		extname string
	)
	switch n := node.(type) {
	case *pantry.Mapping:
		c, ok := n.Get("content")
		if !ok || c == nil {
			c, _ = n.Get("contents")
		}
		if content, ok = scalarText(c); !ok {
			return "", g.errorf(field, "expected `content` or `contents`")
		}
		if ext, _ := n.Get("extname"); ext != nil {
			if extname, ok = scalarText(ext); !ok {
				return "", g.errorf(field+".extname", "expected a string, got %T", ext)
			}
		}
	default:
		if content, ok = scalarText(n); !ok {
			return "", g.errorf(field, "expected a string or a mapping, got %T", n)
		}
	}
	extname = strings.TrimLeft(extname, ".")

	expanded, err := g.apply(field, content)
	if err != nil {
		return "", err
	}
	expanded = strings.ReplaceAll(expanded, "$", `\$`)

	return wrapFixture(strings.ToUpper(key), extname, expanded, strings.HasPrefix(content, "#!"), run), nil
}

func wrapFixture(name, extname, content string, executable bool, run string) string {
	suffix := ""
	if extname != "" {
		suffix = "." + extname
	}
	chmod := ""
	if executable {
		chmod = "chmod +x $" + name + "\n"
	}

	var sb strings.Builder
	sb.WriteString("OLD_" + name + "=$" + name + "\n")
	sb.WriteString(name + "=$(mktemp)" + suffix + "\n")
	sb.WriteString("\n")
	sb.WriteString("cat <<" + heredocMarker + " > $" + name + "\n")
	sb.WriteString(content + "\n")
	sb.WriteString(heredocMarker + "\n")
	sb.WriteString(chmod + "\n")
	sb.WriteString(run + "\n")
	sb.WriteString("\n")
	sb.WriteString("rm -f $" + name + "*\n")
	sb.WriteString("\n")
	sb.WriteString("if test -n \"$OLD_" + name + "\"; then\n")
	sb.WriteString("  " + name + "=$OLD_" + name + "\n")
	sb.WriteString("else\n")
	sb.WriteString("  unset " + name + "\n")
	sb.WriteString("fi")
	return sb.String()
}
