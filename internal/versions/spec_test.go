// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brewkit-dev/brewkit/internal/pantry"
)

func yamlNode(t *testing.T, src string) any {
	t.Helper()
	v, err := pantry.DecodeYAML([]byte(src))
	if err != nil {
		t.Fatalf("decoding %q: %v", src, err)
	}
	return v
}

func TestParseSpec_Literals(t *testing.T) {
	t.Parallel()

	spec, err := ParseSpec("example.com/foo", yamlNode(t, "- 3\n- 1.0.1\n- '2.1'\n- 1.5\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"3.0.0", "1.0.1", "2.1.0", "1.5.0"}
	if len(spec.Literals) != len(want) || len(spec.Sources) != 0 {
		t.Fatalf("got %d literals and %d sources", len(spec.Literals), len(spec.Sources))
	}
	for i, v := range spec.Literals {
		if v.String() != want[i] {
			t.Errorf("literal[%d] = %s, want %s", i, v, want[i])
		}
	}
}

func TestParseSpec_CalendarLiteral(t *testing.T) {
	t.Parallel()

	spec, err := ParseSpec("example.com/cal", yamlNode(t, "- 2021-05-01\n- 1.2.3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"2021.5.1", "1.2.3"}, versionStrings(spec.Literals)); diff != "" {
		t.Errorf("literals mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSpec_Sources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yaml  string
		check func(t *testing.T, s SourceSpec)
	}{
		{
			name: "github default mode",
			yaml: "github: rust-lang/rls",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if s.Kind != KindGitHub || s.GitHubOwner != "rust-lang" || s.GitHubRepo != "rls" || s.GitHubMode != GitHubReleaseTags {
					t.Errorf("unexpected source %+v", s)
				}
			},
		},
		{
			name: "github tags with strip and ignore",
			yaml: "github: curl/curl/tags\nstrip: /^curl-/\nignore: [7.x]\n",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if s.GitHubMode != GitHubTags || len(s.Normalizer.Strip) != 1 || len(s.Normalizer.Ignore) != 1 {
					t.Errorf("unexpected source %+v", s)
				}
				if v, _, ok := s.Normalizer.Normalize(Entry{Version: "curl-8_5_0"}); !ok || v.String() != "8.5.0" {
					t.Errorf("normalizer produced %v, %v", v, ok)
				}
			},
		},
		{
			name: "gitlab",
			yaml: "gitlab: gitlab.gnome.org:GNOME/glib/tags",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if s.Kind != KindGitLab || s.GitLab.Server != "gitlab.gnome.org" || s.GitLab.Mode != GitLabTags {
					t.Errorf("unexpected source %+v", s)
				}
			},
		},
		{
			name: "npm ignore is literal",
			yaml: "npm: typescript\nignore: ['5.0.0', 4.x]\n",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if s.Kind != KindNPM || s.NPMPackage != "typescript" || len(s.Normalizer.Ignore) != 0 {
					t.Errorf("unexpected source %+v", s)
				}
				if len(s.NPMIgnore) != 2 || s.NPMIgnore[1] != "4.x" {
					t.Errorf("NPMIgnore = %v", s.NPMIgnore)
				}
			},
		},
		{
			name: "url",
			yaml: "url: https://ftp.gnu.org/gnu/make/\nmatch: /make-\\d+\\.\\d+(\\.\\d+)?\\.tar\\.gz/\nstrip:\n  - /make-/\n  - /.tar.gz/\n",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if s.Kind != KindURL || s.Match == nil || !s.Match.MatchString("make-4.4.1.tar.gz") || len(s.Normalizer.Strip) != 2 {
					t.Errorf("unexpected source %+v", s)
				}
			},
		},
		{
			name: "transform",
			yaml: "github: a/b/tags\ntransform: 'v => v.replace(/_/g, \".\")'\n",
			check: func(t *testing.T, s SourceSpec) {
				t.Helper()
				if !strings.HasPrefix(s.Transform, "v =>") {
					t.Errorf("Transform = %q", s.Transform)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec, err := ParseSpec("example.com/foo", yamlNode(t, tt.yaml))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(spec.Sources) != 1 {
				t.Fatalf("got %d sources, want 1", len(spec.Sources))
			}
			if spec.Sources[0].Field != "versions" {
				t.Errorf("Field = %q", spec.Sources[0].Field)
			}
			tt.check(t, spec.Sources[0])
		})
	}
}

func TestParseSpec_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		yaml      string
		wantField string
		wantSub   string
	}{
		{"unknown scheme", "- 1.0\n- foo: bar\n  ignore: x\n", "versions[1]", "could not parse version scheme for foo"},
		{"bad literal", "- banana\n", "versions[0]", "invalid version"},
		{"github without repo", "github: rust-lang", "versions.github", "owner/repo"},
		{"github bad mode", "github: a/b/branches", "versions.github", "unknown mode"},
		{"url without delimiters", "url: https://x\nmatch: foo-\\d+\n", "versions.match", "expected /regex/"},
		{"strip without delimiters", "github: a/b\nstrip: v\n", "versions.strip", "expected /regex/"},
		{"npm without name", "npm: ''\n", "versions.npm", "package name"},
		{"wrong type", "- [1, 2]\n", "versions[0]", "expected a version or a source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSpec("example.com/foo", yamlNode(t, tt.yaml))
			var me *pantry.ManifestError
			if !errors.As(err, &me) {
				t.Fatalf("expected ManifestError, got %v", err)
			}
			if me.Field != tt.wantField || !strings.Contains(me.Reason, tt.wantSub) {
				t.Errorf("got field %q reason %q, want %q containing %q", me.Field, me.Reason, tt.wantField, tt.wantSub)
			}
			if !errors.Is(err, pantry.ErrManifest) {
				t.Error("error does not wrap ErrManifest")
			}
		})
	}
}
