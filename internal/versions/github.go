// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"
)

// GitHub listing modes.
const (
	// GitHubReleases yields release names.
	GitHubReleases = "releases"
	// GitHubTags yields every tag, oldest commit first.
	GitHubTags = "tags"
	// GitHubReleaseTags yields the tag names of published releases.
	GitHubReleaseTags = "releases/tags"
)

const (
	defaultGitHubAPI     = "https://api.github.com"
	defaultGitHubGraphQL = "https://api.github.com/graphql"

	// DefaultTagsCap bounds how many tags the GraphQL listing collects.
	DefaultTagsCap = 1000
)

// tagsQuery walks refs/tags backward from the newest commit. Each page is
// ascending by commit date.
const tagsQuery = `query($owner: String!, $name: String!, $before: String) {
  repository(owner: $owner, name: $name) {
    refs(last: 100, before: $before, refPrefix: "refs/tags/", orderBy: {field: TAG_COMMIT_DATE, direction: ASC}) {
      nodes {
        name
        target {
          ... on Commit {
            committedDate
          }
        }
      }
      pageInfo {
        hasPreviousPage
        startCursor
      }
    }
  }
}`

type (
	// GitHubClient lists releases over REST and tags over GraphQL.
	GitHubClient struct {
		req        requester
		baseURL    string
		graphqlURL string
		token      string
		helper     []string
		tagsCap    int

		credOnce    sync.Once
		helperToken string
		credErr     error
	}

	githubRelease struct {
		TagName    string `json:"tag_name"`
		Name       string `json:"name"`
		Prerelease bool   `json:"prerelease"`
		Draft      bool   `json:"draft"`
		CreatedAt  string `json:"created_at"`
	}

	graphqlRequest struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}

	graphqlRef struct {
		Name   string `json:"name"`
		Target struct {
			CommittedDate string `json:"committedDate"`
		} `json:"target"`
	}

	graphqlRefs struct {
		Nodes    []graphqlRef `json:"nodes"`
		PageInfo struct {
			HasPreviousPage bool   `json:"hasPreviousPage"`
			StartCursor     string `json:"startCursor"`
		} `json:"pageInfo"`
	}

	graphqlTagsResponse struct {
		Data struct {
			Repository *struct {
				Refs graphqlRefs `json:"refs"`
			} `json:"repository"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
)

// WithGraphQLURL overrides the GitHub GraphQL endpoint.
func WithGraphQLURL(u string) Option {
	return func(o *options) {
		o.graphqlURL = u
	}
}

// WithCredentialHelper sets the command run to obtain a token when none is
// configured, e.g. ["gh", "auth", "token"].
func WithCredentialHelper(argv []string) Option {
	return func(o *options) {
		o.credentialHelper = slices.Clone(argv)
	}
}

// WithTagsCap bounds how many tags a GraphQL listing collects.
func WithTagsCap(n int) Option {
	return func(o *options) {
		o.tagsCap = n
	}
}

// NewGitHubClient creates a GitHubClient. Defaults: api.github.com, no
// token, no credential helper, DefaultTagsCap.
func NewGitHubClient(opts ...Option) *GitHubClient {
	o := applyOptions(opts)
	c := &GitHubClient{
		req:        newRequester("github", o),
		baseURL:    o.baseURL,
		graphqlURL: o.graphqlURL,
		token:      o.token,
		helper:     o.credentialHelper,
		tagsCap:    o.tagsCap,
	}
	if c.baseURL == "" {
		c.baseURL = defaultGitHubAPI
	}
	if c.graphqlURL == "" {
		c.graphqlURL = defaultGitHubGraphQL
	}
	if c.tagsCap <= 0 {
		c.tagsCap = DefaultTagsCap
	}
	return c
}

// credentials returns the configured token, running the credential helper
// once when there is none.
func (c *GitHubClient) credentials(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	c.credOnce.Do(func() {
		if len(c.helper) == 0 {
			c.credErr = ErrNoCredentials
			return
		}
		out, err := exec.CommandContext(ctx, c.helper[0], c.helper[1:]...).Output()
		if err != nil {
			c.credErr = fmt.Errorf("%w: %s: %w", ErrNoCredentials, strings.Join(c.helper, " "), err)
			return
		}
		if c.helperToken = strings.TrimSpace(string(out)); c.helperToken == "" {
			c.credErr = ErrNoCredentials
		}
	})
	if c.credErr != nil {
		return "", c.credErr
	}
	return c.helperToken, nil
}

func (c *GitHubClient) restHeader(ctx context.Context, reqURL string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github+json")
	h.Set("X-GitHub-Api-Version", "2022-11-28")

	// Only attach the token to the configured API host; REST works
	// unauthenticated at a lower rate limit.
	if u, err := url.Parse(reqURL); err == nil && isHost(u, c.baseURL) {
		if token, err := c.credentials(ctx); err == nil {
			h.Set("Authorization", "Bearer "+token)
		}
	}
	return h
}

// Source returns the listing for owner/repo in mode.
func (c *GitHubClient) Source(owner, repo, mode string) Source {
	return SourceFunc(func(ctx context.Context) iter.Seq2[Entry, error] {
		switch mode {
		case GitHubTags:
			return c.Tags(ctx, owner, repo)
		case GitHubReleases:
			return c.Releases(ctx, owner, repo, false)
		case GitHubReleaseTags, "":
			return c.Releases(ctx, owner, repo, true)
		}
		return fail(fmt.Errorf("unknown github mode %q", mode))
	})
}

// Releases lists published, non-prerelease releases newest first. With
// useTag the entry version is the tag name; otherwise it is the release name,
// falling back to the tag when the release is unnamed.
func (c *GitHubClient) Releases(ctx context.Context, owner, repo string, useTag bool) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
			c.baseURL, url.PathEscape(owner), url.PathEscape(repo), perPage)

		for page := 0; page < c.req.maxPages && pageURL != ""; page++ {
			var releases []githubRelease
			header, err := c.req.getJSON(ctx, pageURL, c.restHeader(ctx, pageURL), &releases)
			if err != nil {
				yield(Entry{}, err)
				return
			}

			for _, r := range releases {
				if r.Prerelease || r.Draft {
					continue
				}
				e := Entry{Version: r.Name, Tag: r.TagName, Date: parseTime(r.CreatedAt)}
				if useTag || e.Version == "" {
					e.Version = r.TagName
				}
				if !yield(e, nil) {
					return
				}
			}

			pageURL = parseLinkHeader(header.Get("Link"))
		}
	}
}

// Tags lists tags in ascending commit-date order. The GraphQL API pages
// backward from the newest tag, so pages are collected until the history is
// exhausted or the tags cap is reached, then emitted oldest first. Only the
// newest cap tags are kept.
func (c *GitHubClient) Tags(ctx context.Context, owner, repo string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		token, err := c.credentials(ctx)
		if err != nil {
			yield(Entry{}, err)
			return
		}

		var (
			pages  [][]Entry
			total  int
			before *string
		)
		for page := 0; page < c.req.maxPages; page++ {
			entries, prev, cursor, err := c.tagsPage(ctx, token, owner, repo, before)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			pages = append(pages, entries)
			total += len(entries)
			if total >= c.tagsCap || !prev {
				break
			}
			before = &cursor
		}

		skip := max(total-c.tagsCap, 0)
		for i := len(pages) - 1; i >= 0; i-- {
			for _, e := range pages[i] {
				if skip > 0 {
					skip--
					continue
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func (c *GitHubClient) tagsPage(ctx context.Context, token, owner, repo string, before *string) ([]Entry, bool, string, error) {
	vars := map[string]any{"owner": owner, "name": repo, "before": nil}
	if before != nil {
		vars["before"] = *before
	}
	body, err := json.Marshal(graphqlRequest{Query: tagsQuery, Variables: vars})
	if err != nil {
		return nil, false, "", err
	}

	h := http.Header{}
	h.Set("Authorization", "bearer "+token)
	h.Set("Content-Type", "application/json")
	resp, err := c.req.do(ctx, http.MethodPost, c.graphqlURL, body, h)
	if err != nil {
		return nil, false, "", err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	var out graphqlTagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, false, "", &UpstreamError{Source: "github", URL: c.graphqlURL, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, false, "", &UpstreamError{Source: "github", URL: c.graphqlURL, Err: errors.New(strings.Join(msgs, "; "))}
	}
	if out.Data.Repository == nil {
		return nil, false, "", &UpstreamError{Source: "github", URL: c.graphqlURL, Err: fmt.Errorf("repository %s/%s not found", owner, repo)}
	}

	refs := out.Data.Repository.Refs
	entries := make([]Entry, 0, len(refs.Nodes))
	for _, n := range refs.Nodes {
		// Annotated tags point at a Tag object and carry no commit date.
		entries = append(entries, Entry{Version: n.Name, Date: parseTime(n.Target.CommittedDate)})
	}
	return entries, refs.PageInfo.HasPreviousPage, refs.PageInfo.StartCursor, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isHost reports whether u targets the host of base.
func isHost(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, b.Host)
}
