// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a string cannot be parsed as a version.
var ErrInvalidVersion = errors.New("invalid version")

var (
	// versionRegex matches one or more dot-separated numeric components with
	// optional prerelease and build suffixes.
	versionRegex = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

	// tolerantRegex matches archive-style versions where a component may
	// carry a single trailing lowercase letter (1.1.1q).
	tolerantRegex = regexp.MustCompile(`^v?(\d+[a-z]?(?:\.\d+[a-z]?)*)$`)
)

// Version is a parsed version. Values are immutable; WithTag returns a copy.
type Version struct {
	Major int
	Minor int
	Patch int
	// Extra holds numeric components beyond patch (1.2.3.4 → [4]).
	Extra []int
	// Prerelease holds the dot-separated prerelease identifiers.
	Prerelease []string
	// Build is the build metadata after '+', if any.
	Build string
	// Raw is the parsed text without a leading 'v'.
	Raw string
	// Tag records the upstream string this version was derived from.
	Tag string

	pretty string
}

// Parse parses a strict version string such as "1.2.3", "v2", "1.2.3.4" or
// "1.0.0-rc.1+build". Missing minor/patch components default to zero.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	comps, err := parseComponents(strings.Split(m[1], "."))
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}

	v := fromComponents(comps)
	if m[2] != "" {
		v.Prerelease = strings.Split(m[2], ".")
	}
	v.Build = m[3]
	v.Raw = strings.TrimPrefix(s, "v")
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseTolerant parses versions as they appear in archive filenames, where a
// component may end in a letter. The letter becomes an additional component
// ('a' = 1 … 'z' = 26) and String returns the text unchanged.
func ParseTolerant(s string) (Version, error) {
	if v, err := Parse(s); err == nil {
		return v, nil
	}

	s = strings.TrimSpace(s)
	if !tolerantRegex.MatchString(s) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	raw := strings.TrimPrefix(s, "v")
	var comps []int
	for part := range strings.SplitSeq(raw, ".") {
		letter := 0
		if last := part[len(part)-1]; last >= 'a' && last <= 'z' {
			letter = int(last-'a') + 1
			part = part[:len(part)-1]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
		}
		comps = append(comps, n)
		if letter > 0 {
			comps = append(comps, letter)
		}
	}

	v := fromComponents(comps)
	v.Raw = raw
	v.pretty = raw
	return v, nil
}

func parseComponents(parts []string) ([]int, error) {
	comps := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		comps = append(comps, n)
	}
	return comps, nil
}

func fromComponents(comps []int) Version {
	var v Version
	for i, n := range comps {
		switch i {
		case 0:
			v.Major = n
		case 1:
			v.Minor = n
		case 2:
			v.Patch = n
		default:
			v.Extra = append(v.Extra, n)
		}
	}
	return v
}

// Components returns the numeric components: major, minor, patch and extras.
func (v Version) Components() []int {
	return append([]int{v.Major, v.Minor, v.Patch}, v.Extra...)
}

// IsPrerelease reports whether the version carries prerelease identifiers.
func (v Version) IsPrerelease() bool {
	return len(v.Prerelease) > 0
}

// WithTag returns a copy of v with its provenance tag set.
func (v Version) WithTag(tag string) Version {
	v.Tag = tag
	return v
}

// Marketing returns "major.minor".
func (v Version) Marketing() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// String returns the canonical form major.minor.patch[.extra…][-pre][+build].
// Versions parsed tolerantly print as they were written.
func (v Version) String() string {
	if v.pretty != "" {
		return v.pretty
	}

	var sb strings.Builder
	for i, n := range v.Components() {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(n))
	}
	if len(v.Prerelease) > 0 {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(v.Prerelease, "."))
	}
	if v.Build != "" {
		sb.WriteByte('+')
		sb.WriteString(v.Build)
	}
	return sb.String()
}

// Compare returns -1, 0 or 1. Numeric components are compared in order with
// missing extras treated as zero; a prerelease sorts below the same release.
// Raw, Tag and Build do not take part.
func (v Version) Compare(other Version) int {
	a, b := v.Components(), other.Components()
	for i := range max(len(a), len(b)) {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return comparePrerelease(v.Prerelease, other.Prerelease)
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func comparePrerelease(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}

	for i := range min(len(a), len(b)) {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// compareIdentifier orders numeric identifiers numerically and below
// alphanumeric ones, which compare lexically.
func compareIdentifier(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Sort sorts versions ascending in place.
func Sort(vs []Version) {
	slices.SortStableFunc(vs, Version.Compare)
}
