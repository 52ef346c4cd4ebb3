// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

// ConditionKind tags the shape of a step's `if`.
type ConditionKind int

const (
	// Always is a step without a condition.
	Always ConditionKind = iota
	// OnPlatform holds on one platform ("linux").
	OnPlatform
	// OnArch holds on one architecture ("aarch64").
	OnArch
	// OnPlatformArch holds on one platform/arch pair ("darwin/x86-64").
	OnPlatformArch
	// InRange holds when the package version satisfies a range ("^3", ">=1.2<2").
	InRange
)

// Condition is a parsed `if`. Only the fields of its Kind are set.
type Condition struct {
	Kind     ConditionKind
	Platform string
	Arch     string
	Range    semver.Range
}

// ParseCondition parses the value of a step's `if`. A missing or empty value
// is Always. Anything that is not a platform, an arch, a platform/arch pair
// or a version range is an error.
func ParseCondition(v any) (Condition, error) {
	var s string
	switch v := v.(type) {
	case nil:
		return Condition{Kind: Always}, nil
	case string:
		s = strings.TrimSpace(v)
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return Condition{}, fmt.Errorf("expected a string, got %T", v)
	}

	switch {
	case s == "":
		return Condition{Kind: Always}, nil
	case platform.IsPlatform(s):
		return Condition{Kind: OnPlatform, Platform: s}, nil
	case platform.IsArch(s):
		return Condition{Kind: OnArch, Arch: s}, nil
	}
	if p, a, ok := strings.Cut(s, "/"); ok {
		if !platform.IsPlatform(p) || !platform.IsArch(a) {
			return Condition{}, fmt.Errorf("unknown platform/arch %q", s)
		}
		return Condition{Kind: OnPlatformArch, Platform: p, Arch: a}, nil
	}

	r, err := semver.ParseRange(s)
	if err != nil {
		return Condition{}, fmt.Errorf("%q is not a platform, an arch or a version range", s)
	}
	return Condition{Kind: InRange, Range: r}, nil
}

// Holds reports whether the condition selects host building version v.
func (c Condition) Holds(host platform.Host, v semver.Version) bool {
	switch c.Kind {
	case OnPlatform:
		return host.Platform == c.Platform
	case OnArch:
		return host.Arch == c.Arch
	case OnPlatformArch:
		return host.Platform == c.Platform && host.Arch == c.Arch
	case InRange:
		return c.Range.Satisfies(v)
	}
	return true
}

func (c Condition) String() string {
	switch c.Kind {
	case OnPlatform:
		return c.Platform
	case OnArch:
		return c.Arch
	case OnPlatformArch:
		return c.Platform + "/" + c.Arch
	case InRange:
		return c.Range.String()
	}
	return "always"
}
