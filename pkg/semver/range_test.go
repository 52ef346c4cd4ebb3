// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"errors"
	"testing"
)

func TestRange_Satisfies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		in   []string
		out  []string
	}{
		{expr: "*", in: []string{"0.0.1", "1.2.3", "99"}},
		{expr: "^1.2", in: []string{"1.2.0", "1.9.9"}, out: []string{"1.1.9", "2.0.0"}},
		{expr: "^0.2", in: []string{"0.2.0", "0.2.9"}, out: []string{"0.3.0", "0.1.0"}},
		{expr: "^0", in: []string{"0.0.1", "0.99.0"}, out: []string{"1.0.0"}},
		{expr: "^0.0.3", in: []string{"0.0.3"}, out: []string{"0.0.4"}},
		{expr: "~1.2", in: []string{"1.2.0", "1.2.9"}, out: []string{"1.3.0"}},
		{expr: "~1", in: []string{"1.0.0", "1.9.0"}, out: []string{"2.0.0"}},
		{expr: "@1.2", in: []string{"1.2.0", "1.2.7.1"}, out: []string{"1.3.0", "1.1.0"}},
		{expr: "@3", in: []string{"3.0.0", "3.11.2"}, out: []string{"4.0.0"}},
		{expr: "1.2", in: []string{"1.2.5"}, out: []string{"1.3.0"}},
		{expr: "=1.2.3", in: []string{"1.2.3"}, out: []string{"1.2.4", "1.2.3.1"}},
		{expr: ">=1.2<2", in: []string{"1.2.0", "1.99"}, out: []string{"2.0.0", "1.1"}},
		{expr: ">1", in: []string{"1.0.1"}, out: []string{"1.0.0"}},
		{expr: "<=2", in: []string{"2.0.0", "0.1"}, out: []string{"2.0.1"}},
		{expr: "^1,^3", in: []string{"1.5", "3.1"}, out: []string{"2.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()

			r, err := ParseRange(tt.expr)
			if err != nil {
				t.Fatalf("ParseRange(%q): %v", tt.expr, err)
			}
			for _, s := range tt.in {
				if !r.Satisfies(MustParse(s)) {
					t.Errorf("%q should satisfy %q", s, tt.expr)
				}
			}
			for _, s := range tt.out {
				if r.Satisfies(MustParse(s)) {
					t.Errorf("%q should not satisfy %q", s, tt.expr)
				}
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "linux", "^", ">=2<1", "^1.0.0-beta", "x86-64"} {
		if _, err := ParseRange(expr); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ParseRange(%q) error = %v, want ErrInvalidRange", expr, err)
		}
	}
}

func TestRange_Max(t *testing.T) {
	t.Parallel()

	candidates := []Version{MustParse("1.0.0"), MustParse("1.4.2"), MustParse("2.1.0"), MustParse("1.4.10")}

	got, ok := MustParseRange("^1").Max(candidates)
	if !ok {
		t.Fatal("expected a match for ^1")
	}
	if got.String() != "1.4.10" {
		t.Errorf("Max(^1) = %s, want 1.4.10", got)
	}

	if _, ok := MustParseRange("^3").Max(candidates); ok {
		t.Error("expected no match for ^3")
	}
	if _, ok := Any().Max(nil); ok {
		t.Error("expected no match for an empty candidate set")
	}
}

func TestRange_String(t *testing.T) {
	t.Parallel()

	if got := MustParseRange(" ^1.2 , >=3 ").String(); got != "^1.2,>=3" {
		t.Errorf("String() = %q", got)
	}
	if got := Exact(MustParse("1.2")).String(); got != "=1.2.0" {
		t.Errorf("Exact String() = %q", got)
	}
	if !Any().IsAny() || MustParseRange("^1").IsAny() {
		t.Error("IsAny mismatch")
	}
}
