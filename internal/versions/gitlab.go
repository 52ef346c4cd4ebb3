// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

// GitLab listing modes.
const (
	GitLabReleases = "releases"
	GitLabTags     = "tags"

	defaultGitLabServer = "gitlab.com"
)

type (
	// GitLabAddress is a parsed "server:project/type" reference.
	GitLabAddress struct {
		Server  string
		Project string
		Mode    string
	}

	// GitLabClient lists releases or tags from a GitLab instance.
	GitLabClient struct {
		req     requester
		baseURL string
		token   string
	}

	gitlabRef struct {
		Name      string `json:"name"`
		TagName   string `json:"tag_name"`
		CreatedAt string `json:"created_at"`
	}
)

// ParseGitLabAddress parses "[server:]group/project[/releases|/tags]". The
// server defaults to gitlab.com and the mode to releases.
func ParseGitLabAddress(s string) (GitLabAddress, error) {
	a := GitLabAddress{Server: defaultGitLabServer, Mode: GitLabReleases}
	if server, rest, ok := strings.Cut(s, ":"); ok {
		a.Server, s = server, rest
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		switch s[i+1:] {
		case GitLabReleases, GitLabTags:
			a.Mode, s = s[i+1:], s[:i]
		}
	}
	if s == "" || a.Server == "" {
		return GitLabAddress{}, fmt.Errorf("invalid gitlab address %q", s)
	}
	a.Project = s
	return a, nil
}

// NewGitLabClient creates a GitLabClient. Requests go to https://<server>
// unless WithBaseURL pins every server to one base.
func NewGitLabClient(opts ...Option) *GitLabClient {
	o := applyOptions(opts)
	return &GitLabClient{req: newRequester("gitlab", o), baseURL: o.baseURL, token: o.token}
}

// Source returns the listing for a.
func (c *GitLabClient) Source(a GitLabAddress) Source {
	return SourceFunc(func(ctx context.Context) iter.Seq2[Entry, error] {
		return c.Entries(ctx, a)
	})
}

// Entries lists a.Project's releases or tags, following Link pagination.
func (c *GitLabClient) Entries(ctx context.Context, a GitLabAddress) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		base := c.baseURL
		if base == "" {
			base = "https://" + a.Server
		}
		kind := "releases"
		if a.Mode == GitLabTags {
			kind = "repository/tags"
		}
		pageURL := fmt.Sprintf("%s/api/v4/projects/%s/%s?per_page=%d&page=1",
			base, url.PathEscape(a.Project), kind, perPage)

		header := http.Header{}
		if c.token != "" {
			header.Set("PRIVATE-TOKEN", c.token)
		}

		for page := 0; page < c.req.maxPages && pageURL != ""; page++ {
			var refs []gitlabRef
			h, err := c.req.getJSON(ctx, pageURL, header, &refs)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			for _, r := range refs {
				if !yield(Entry{Version: r.Name, Tag: r.TagName, Date: parseTime(r.CreatedAt)}, nil) {
					return
				}
			}
			pageURL = parseLinkHeader(h.Get("Link"))
		}
	}
}
