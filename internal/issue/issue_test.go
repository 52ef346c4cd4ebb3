// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		contains string
	}{
		{PackageNotFoundId, "Package not found"},
		{AmbiguousPackageId, "Ambiguous package name"},
		{NoMatchingVersionId, "No version satisfies"},
		{NoVersionsParsedId, "--verbose"},
		{UpstreamFailureId, "Upstream request failed"},
		{MissingCredentialsId, "gh auth login"},
		{ManifestInvalidId, "Invalid manifest"},
		{PlatformUnsupportedId, "Not available on this platform"},
		{ConfigLoadFailedId, "Failed to load configuration"},
		{ScriptExecutionFailedId, "Script failed"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			got := Get(tt.id)
			if got == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if got.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", got.Id(), tt.id)
			}
			if !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
				t.Errorf("MarkdownMsg() should contain %q", tt.contains)
			}
			if len(got.DocLinks())+len(got.ExtLinks()) == 0 {
				t.Errorf("issue %d has no links", tt.id)
			}
		})
	}

	if Get(Id(9999)) != nil {
		t.Error("Get(9999) should return nil")
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	i := Get(PackageNotFoundId)
	links := i.DocLinks()
	links[0] = "modified"
	if i.DocLinks()[0] == "modified" {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	original := render
	defer func() { render = original }()

	var gotStyle string
	render = func(in, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	out, err := Get(MissingCredentialsId).Render("notty")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty", gotStyle)
	}
	if !strings.Contains(out, "## See also") || !strings.Contains(out, "cli.github.com") {
		t.Errorf("rendered output should list links, got:\n%s", out)
	}
}

func TestValues(t *testing.T) {
	vs := Values()
	if len(vs) != int(ScriptExecutionFailedId) {
		t.Fatalf("Values() returned %d issues, want %d", len(vs), ScriptExecutionFailedId)
	}
	for i, v := range vs {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
	}
}
