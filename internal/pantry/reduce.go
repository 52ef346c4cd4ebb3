// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	"fmt"
	"regexp"

	"github.com/brewkit-dev/brewkit/pkg/platform"
)

// filterKeyRegex matches the keys of env and dependency mappings that select
// a host instead of naming a variable or project.
var filterKeyRegex = regexp.MustCompile(`^(?:(?:darwin|linux)(?:/(?:aarch64|x86-64))?|aarch64|x86-64)$`)

// IsFilterKey reports whether key is a platform filter such as "linux",
// "aarch64" or "darwin/x86-64".
func IsFilterKey(key string) bool {
	return filterKeyRegex.MatchString(key)
}

// PlatformReduce returns a copy of m with every filter key removed. The
// mapping under a filter that selects host is merged into the result: a list
// value is appended to whatever the key already holds, anything else
// replaces it. m itself is not modified.
func PlatformReduce(m *Mapping, host platform.Host) (*Mapping, error) {
	out := m.Clone()
	for key, value := range m.All() {
		if !IsFilterKey(key) {
			continue
		}
		out.Delete(key)
		if !host.Matches(key) {
			continue
		}

		dict, ok := value.(*Mapping)
		if !ok {
			return nil, fmt.Errorf("%s: expected a mapping, got %T", key, value)
		}
		for k, v := range dict.All() {
			list, isList := v.([]any)
			if !isList {
				out.Set(k, v)
				continue
			}

			var merged []any
			existing, _ := out.Get(k)
			switch e := existing.(type) {
			case nil:
			case []any:
				merged = append(merged, e...)
			case string:
				if e != "" {
					merged = append(merged, e)
				}
			default:
				merged = append(merged, e)
			}
			out.Set(k, append(merged, list...))
		}
	}
	return out, nil
}
