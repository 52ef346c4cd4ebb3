// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/internal/moustache"
	"github.com/brewkit-dev/brewkit/internal/pantry"
	"github.com/brewkit-dev/brewkit/pkg/platform"
)

// EnvVar is one flattened environment entry.
type EnvVar struct {
	Key   string
	Value string
}

// FlattenEnv reduces env for host and renders every value as text, keeping
// the manifest's key order. Lists are joined with single spaces; booleans
// become 1 or 0, null becomes 0, strings are token-expanded.
func FlattenEnv(env *pantry.Mapping, host platform.Host, tokens *moustache.Map) ([]EnvVar, error) {
	reduced, err := pantry.PlatformReduce(env, host)
	if err != nil {
		return nil, err
	}

	out := make([]EnvVar, 0, reduced.Len())
	for key, value := range reduced.All() {
		var text string
		if list, ok := value.([]any); ok {
			parts := make([]string, len(list))
			for i, item := range list {
				if parts[i], err = envText(item, tokens); err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
				}
			}
			text = strings.Join(parts, " ")
		} else if text, err = envText(value, tokens); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, EnvVar{Key: key, Value: text})
	}
	return out, nil
}

func envText(v any, tokens *moustache.Map) (string, error) {
	switch v := v.(type) {
	case nil:
		return "0", nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return tokens.Apply(v)
	}
	return "", fmt.Errorf("expected a scalar, got %T", v)
}

// Quote renders value for the right-hand side of an export. Double quotes
// inside the value are doubled, which closes and reopens the shell string
// around an empty one ("a ""$B"" c"); the redundant "" pairs this leaves at
// either end are dropped, but never below one "" pair, so empty and
// lone-quote values stay valid shell.
func Quote(value string) string {
	q := `"` + strings.ReplaceAll(strings.TrimSpace(value), `"`, `""`) + `"`
	for len(q) > 2 && strings.HasPrefix(q, `""`) {
		q = q[1:]
	}
	for len(q) > 2 && strings.HasSuffix(q, `""`) {
		q = q[:len(q)-1]
	}
	return q
}

// Exports renders vars as export lines joined by newlines.
func Exports(vars []EnvVar) string {
	lines := make([]string, len(vars))
	for i, v := range vars {
		lines[i] = "export " + v.Key + "=" + Quote(v.Value)
	}
	return strings.Join(lines, "\n")
}
