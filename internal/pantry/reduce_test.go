// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	"testing"

	"github.com/brewkit-dev/brewkit/pkg/platform"

	"github.com/google/go-cmp/cmp"
)

func TestIsFilterKey(t *testing.T) {
	t.Parallel()

	for key, want := range map[string]bool{
		"linux":          true,
		"darwin":         true,
		"aarch64":        true,
		"x86-64":         true,
		"linux/aarch64":  true,
		"darwin/x86-64":  true,
		"windows":        false,
		"linux/arm64":    false,
		"CFLAGS":         false,
		"gnu.org/make":   false,
		"linux/aarch64/": false,
	} {
		if got := IsFilterKey(key); got != want {
			t.Errorf("IsFilterKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestPlatformReduce(t *testing.T) {
	t.Parallel()

	linux := platform.Host{Platform: platform.Linux, Arch: platform.X8664}
	darwin := platform.Host{Platform: platform.Darwin, Arch: platform.AArch64}

	tests := []struct {
		name  string
		input *Mapping
		host  platform.Host
		want  map[string]any
		keys  []string
	}{
		{
			name:  "list supplements scalar",
			input: MappingOf("linux/x86-64", MappingOf("FOO", []any{"x"}), "FOO", "y"),
			host:  linux,
			want:  map[string]any{"FOO": []any{"y", "x"}},
			keys:  []string{"FOO"},
		},
		{
			name:  "scalar replaces",
			input: MappingOf("FOO", "y", "linux", MappingOf("FOO", "z")),
			host:  linux,
			want:  map[string]any{"FOO": "z"},
			keys:  []string{"FOO"},
		},
		{
			name:  "non-matching filter dropped",
			input: MappingOf("darwin", MappingOf("SDK", "macos"), "CC", "clang"),
			host:  linux,
			want:  map[string]any{"CC": "clang"},
			keys:  []string{"CC"},
		},
		{
			name:  "arch filter",
			input: MappingOf("aarch64", MappingOf("ARCHFLAGS", "-arch arm64")),
			host:  darwin,
			want:  map[string]any{"ARCHFLAGS": "-arch arm64"},
			keys:  []string{"ARCHFLAGS"},
		},
		{
			name:  "list onto missing key",
			input: MappingOf("linux", MappingOf("LIBS", []any{"-lrt", "-ldl"})),
			host:  linux,
			want:  map[string]any{"LIBS": []any{"-lrt", "-ldl"}},
			keys:  []string{"LIBS"},
		},
		{
			name:  "list onto list",
			input: MappingOf("ARGS", []any{"--a"}, "x86-64", MappingOf("ARGS", []any{"--b"})),
			host:  linux,
			want:  map[string]any{"ARGS": []any{"--a", "--b"}},
			keys:  []string{"ARGS"},
		},
		{
			name:  "new keys appended in order",
			input: MappingOf("A", "1", "linux", MappingOf("C", "3", "B", "2")),
			host:  linux,
			want:  map[string]any{"A": "1", "B": "2", "C": "3"},
			keys:  []string{"A", "C", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PlatformReduce(tt.input, tt.host)
			if err != nil {
				t.Fatalf("PlatformReduce: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Plain()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.keys, got.Keys()); diff != "" {
				t.Errorf("key order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlatformReduce_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := MappingOf("FOO", []any{"a"}, "linux", MappingOf("FOO", []any{"b"}))
	if _, err := PlatformReduce(in, platform.Host{Platform: platform.Linux, Arch: platform.X8664}); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"FOO": []any{"a"}, "linux": map[string]any{"FOO": []any{"b"}}}
	if diff := cmp.Diff(want, in.Plain()); diff != "" {
		t.Errorf("input was modified (-want +got):\n%s", diff)
	}
}

func TestPlatformReduce_FilterValueMustBeMapping(t *testing.T) {
	t.Parallel()

	_, err := PlatformReduce(MappingOf("linux", "oops"), platform.Host{Platform: platform.Linux, Arch: platform.X8664})
	if err == nil {
		t.Error("expected error for scalar under a filter key")
	}
}
