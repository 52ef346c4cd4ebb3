// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	strip, err := CompileStrip([]string{`/^release-/`})
	if err != nil {
		t.Fatal(err)
	}
	ignore, err := CompileIgnore([]string{"0.x", `/^9\./`})
	if err != nil {
		t.Fatal(err)
	}
	n := Normalizer{Strip: strip, Ignore: ignore}

	tests := []struct {
		name       string
		entry      Entry
		want       string
		wantTag    string
		wantReason string
	}{
		{name: "underscores", entry: Entry{Version: "1_2_3"}, want: "1.2.3", wantTag: "1_2_3"},
		{name: "calendar", entry: Entry{Version: "2021-05-01"}, want: "2021.5.1", wantTag: "2021-05-01"},
		{name: "leading v", entry: Entry{Version: "v2.3.4"}, want: "2.3.4", wantTag: "v2.3.4"},
		{name: "stripped", entry: Entry{Version: "release-4.1"}, want: "4.1.0", wantTag: "release-4.1"},
		{name: "release title", entry: Entry{Version: "Big Release", Tag: "v5.0.0"}, wantReason: ReasonUnparsable},
		{name: "adapter tag kept", entry: Entry{Version: "5.0.0", Tag: "refs-5"}, want: "5.0.0", wantTag: "refs-5"},
		{name: "dashed prerelease", entry: Entry{Version: "1.0.0-rc.1"}, wantReason: ReasonPrerelease},
		{name: "garbage", entry: Entry{Version: "nightly"}, wantReason: ReasonUnparsable},
		{name: "ignored glob", entry: Entry{Version: "0.12"}, wantReason: ReasonExplicit},
		{name: "ignored regex", entry: Entry{Version: "release-9.0"}, wantReason: ReasonExplicit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, reason, ok := n.Normalize(tt.entry)
			if tt.wantReason != "" {
				if ok || reason != tt.wantReason {
					t.Fatalf("Normalize(%+v) = %v, %q, %v; want reason %q", tt.entry, v, reason, ok, tt.wantReason)
				}
				return
			}
			if !ok {
				t.Fatalf("Normalize(%+v) rejected: %s", tt.entry, reason)
			}
			if v.String() != tt.want || v.Tag != tt.wantTag {
				t.Errorf("Normalize(%+v) = %s (tag %q), want %s (tag %q)", tt.entry, v, v.Tag, tt.want, tt.wantTag)
			}
		})
	}
}

func TestCompileIgnore_Placeholders(t *testing.T) {
	t.Parallel()

	rxs, err := CompileIgnore([]string{"1.x"})
	if err != nil {
		t.Fatal(err)
	}
	rx := rxs[0]
	for _, s := range []string{"1.5", "1.9", "1.12"} {
		if !rx.MatchString(s) {
			t.Errorf("1.x should match %q", s)
		}
	}
	for _, s := range []string{"2.0", "1.5.1", "11.5"} {
		if rx.MatchString(s) {
			t.Errorf("1.x should not match %q", s)
		}
	}

	rxs, err = CompileIgnore([]string{"2.x.y"})
	if err != nil {
		t.Fatal(err)
	}
	if !rxs[0].MatchString("2.4.10") || rxs[0].MatchString("2.4") {
		t.Errorf("2.x.y matched unexpectedly: %s", rxs[0])
	}
}

func TestCompilePatterns_Errors(t *testing.T) {
	t.Parallel()

	if _, err := CompileStrip([]string{"release-"}); err == nil {
		t.Error("strip without slashes should fail")
	}
	if _, err := CompileStrip([]string{"/(/"}); err == nil {
		t.Error("invalid strip regex should fail")
	}
	if _, err := CompileIgnore([]string{"/[/"}); err == nil {
		t.Error("invalid ignore regex should fail")
	}
}
