// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRange is returned when a constraint expression cannot be parsed.
var ErrInvalidRange = errors.New("invalid range")

// comparisonRegex matches ">=1.2<2", ">1", "<=3" and similar bounded forms.
var comparisonRegex = regexp.MustCompile(`^(?:(>=|>)\s*(v?[0-9][0-9A-Za-z.+-]*?))?\s*(?:(<=|<)\s*(v?[0-9][0-9A-Za-z.+-]*))?$`)

type bound struct {
	v         Version
	inclusive bool
}

// interval is a half-open or closed span of versions; a nil bound is unbounded.
type interval struct {
	lower *bound
	upper *bound
}

func (iv interval) contains(v Version) bool {
	if iv.lower != nil {
		c := v.Compare(iv.lower.v)
		if c < 0 || (c == 0 && !iv.lower.inclusive) {
			return false
		}
	}
	if iv.upper != nil {
		c := v.Compare(iv.upper.v)
		if c > 0 || (c == 0 && !iv.upper.inclusive) {
			return false
		}
	}
	return true
}

// Range is a version constraint: a union of intervals separated by commas.
//
//	*            any version
//	^1.2         >=1.2 <2     (^0.2 → <0.3, ^0 → <1)
//	~1.2         >=1.2 <1.3
//	@1.2, 1.2    >=1.2 <1.3   (bump the last written component)
//	=1.2.3       exactly 1.2.3
//	>=1<3, >1, <=2
type Range struct {
	clauses   []string
	intervals []interval
}

// Any returns the range that matches every version.
func Any() Range {
	return Range{clauses: []string{"*"}, intervals: []interval{{}}}
}

// Exact returns a range matching only v.
func Exact(v Version) Range {
	b := &bound{v: v, inclusive: true}
	return Range{clauses: []string{"=" + v.String()}, intervals: []interval{{lower: b, upper: b}}}
}

// ParseRange parses a constraint expression.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty expression", ErrInvalidRange)
	}

	var r Range
	for clause := range strings.SplitSeq(s, ",") {
		clause = strings.TrimSpace(clause)
		iv, err := parseClause(clause)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, s, err)
		}
		r.clauses = append(r.clauses, clause)
		r.intervals = append(r.intervals, iv)
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseClause(c string) (interval, error) {
	switch {
	case c == "*" || c == "x":
		return interval{}, nil
	case strings.HasPrefix(c, "^"):
		return caret(c[1:])
	case strings.HasPrefix(c, "~"):
		return tilde(c[1:])
	case strings.HasPrefix(c, "@"):
		return fuzzy(c[1:])
	case strings.HasPrefix(c, "="):
		v, err := Parse(c[1:])
		if err != nil {
			return interval{}, err
		}
		b := &bound{v: v, inclusive: true}
		return interval{lower: b, upper: b}, nil
	case strings.HasPrefix(c, ">") || strings.HasPrefix(c, "<"):
		return comparison(c)
	}
	return fuzzy(c)
}

// written returns the components literally present in s ("1.2" → [1 2]).
func written(s string) (Version, []int, error) {
	v, err := Parse(s)
	if err != nil {
		return Version{}, nil, err
	}
	if v.IsPrerelease() {
		return v, nil, fmt.Errorf("prerelease not allowed in %q", s)
	}
	core, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(s), "v"), "+")
	n := strings.Count(core, ".") + 1
	return v, v.Components()[:n], nil
}

func bumped(comps []int, at int) Version {
	next := make([]int, at+1)
	copy(next, comps[:at])
	next[at] = comps[at] + 1
	return fromComponents(next)
}

func caret(s string) (interval, error) {
	v, comps, err := written(s)
	if err != nil {
		return interval{}, err
	}
	at := len(comps) - 1
	for i, n := range comps {
		if n != 0 {
			at = i
			break
		}
	}
	return interval{
		lower: &bound{v: v, inclusive: true},
		upper: &bound{v: bumped(comps, at)},
	}, nil
}

func tilde(s string) (interval, error) {
	v, comps, err := written(s)
	if err != nil {
		return interval{}, err
	}
	at := min(1, len(comps)-1)
	return interval{
		lower: &bound{v: v, inclusive: true},
		upper: &bound{v: bumped(comps, at)},
	}, nil
}

func fuzzy(s string) (interval, error) {
	v, comps, err := written(s)
	if err != nil {
		return interval{}, err
	}
	return interval{
		lower: &bound{v: v, inclusive: true},
		upper: &bound{v: bumped(comps, len(comps)-1)},
	}, nil
}

func comparison(c string) (interval, error) {
	m := comparisonRegex.FindStringSubmatch(c)
	if m == nil || (m[1] == "" && m[3] == "") {
		return interval{}, fmt.Errorf("unrecognized comparison %q", c)
	}

	var iv interval
	if m[1] != "" {
		v, err := Parse(m[2])
		if err != nil {
			return interval{}, err
		}
		iv.lower = &bound{v: v, inclusive: m[1] == ">="}
	}
	if m[3] != "" {
		v, err := Parse(m[4])
		if err != nil {
			return interval{}, err
		}
		iv.upper = &bound{v: v, inclusive: m[3] == "<="}
	}
	if iv.lower != nil && iv.upper != nil && iv.lower.v.Compare(iv.upper.v) > 0 {
		return interval{}, fmt.Errorf("lower bound above upper bound in %q", c)
	}
	return iv, nil
}

// Satisfies reports whether v lies within any interval of the range.
func (r Range) Satisfies(v Version) bool {
	for _, iv := range r.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Max returns the highest candidate that satisfies the range.
func (r Range) Max(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range candidates {
		if !r.Satisfies(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best, found = v, true
		}
	}
	return best, found
}

// IsAny reports whether the range places no constraint on the version.
func (r Range) IsAny() bool {
	for _, iv := range r.intervals {
		if iv.lower == nil && iv.upper == nil {
			return true
		}
	}
	return false
}

// String returns the range expression as written.
func (r Range) String() string {
	if len(r.clauses) == 0 {
		return "*"
	}
	return strings.Join(r.clauses, ",")
}
