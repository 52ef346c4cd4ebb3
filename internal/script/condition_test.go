// SPDX-License-Identifier: MPL-2.0

package script

import (
	"testing"

	"github.com/brewkit-dev/brewkit/pkg/platform"
	"github.com/brewkit-dev/brewkit/pkg/semver"
)

func TestParseCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      any
		kind    ConditionKind
		str     string
		wantErr bool
	}{
		{in: nil, kind: Always, str: "always"},
		{in: "", kind: Always, str: "always"},
		{in: "linux", kind: OnPlatform, str: "linux"},
		{in: " darwin ", kind: OnPlatform, str: "darwin"},
		{in: "aarch64", kind: OnArch, str: "aarch64"},
		{in: "darwin/x86-64", kind: OnPlatformArch, str: "darwin/x86-64"},
		{in: "^3", kind: InRange},
		{in: ">=1.2<2", kind: InRange},
		{in: 3, kind: InRange},
		{in: "linux/sparc", wantErr: true},
		{in: "plan9", wantErr: true},
		{in: []any{"linux"}, wantErr: true},
	}
	for _, tt := range tests {
		c, err := ParseCondition(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCondition(%v) = %v, want error", tt.in, c)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCondition(%v): %v", tt.in, err)
			continue
		}
		if c.Kind != tt.kind {
			t.Errorf("ParseCondition(%v).Kind = %d, want %d", tt.in, c.Kind, tt.kind)
		}
		if tt.str != "" && c.String() != tt.str {
			t.Errorf("ParseCondition(%v).String() = %q, want %q", tt.in, c.String(), tt.str)
		}
	}
}

func TestCondition_Holds(t *testing.T) {
	t.Parallel()

	linux := platform.Host{Platform: platform.Linux, Arch: platform.X8664}
	mac := platform.Host{Platform: platform.Darwin, Arch: platform.AArch64}
	v := semver.MustParse("3.1.0")

	tests := []struct {
		cond       string
		linux, mac bool
	}{
		{"", true, true},
		{"linux", true, false},
		{"darwin", false, true},
		{"aarch64", false, true},
		{"x86-64", true, false},
		{"darwin/aarch64", false, true},
		{"linux/aarch64", false, false},
		{"^3", true, true},
		{"<3", false, false},
	}
	for _, tt := range tests {
		c, err := ParseCondition(tt.cond)
		if err != nil {
			t.Fatalf("ParseCondition(%q): %v", tt.cond, err)
		}
		if got := c.Holds(linux, v); got != tt.linux {
			t.Errorf("%q on linux = %v, want %v", tt.cond, got, tt.linux)
		}
		if got := c.Holds(mac, v); got != tt.mac {
			t.Errorf("%q on darwin = %v, want %v", tt.cond, got, tt.mac)
		}
	}
}
