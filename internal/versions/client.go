// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// perPage is the page size requested from paginated APIs.
	perPage = 100

	// defaultMaxPages bounds pagination when no limit is configured.
	defaultMaxPages = 100

	// maxResponseBytes is the upper bound on any response body (10 MB).
	maxResponseBytes = 10 << 20

	defaultUserAgent = "brewkit/dev"
)

type (
	// options are shared by every client; each reads the fields it needs.
	options struct {
		httpClient       *http.Client
		userAgent        string
		baseURL          string
		graphqlURL       string
		token            string
		credentialHelper []string
		tagsCap          int
		maxPages         int
	}

	// Option configures a version source client.
	Option func(*options)

	// requester performs HTTP requests with the shared headers, limits and
	// error mapping.
	requester struct {
		source     string
		httpClient *http.Client
		userAgent  string
		maxPages   int
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets the access token for authenticated requests.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithMaxPages bounds how many pages a paginated listing may fetch.
func WithMaxPages(n int) Option {
	return func(o *options) {
		o.maxPages = n
	}
}

func applyOptions(opts []Option) options {
	o := options{
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
		maxPages:   defaultMaxPages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxPages <= 0 {
		o.maxPages = defaultMaxPages
	}
	return o
}

func newRequester(source string, o options) requester {
	return requester{source: source, httpClient: o.httpClient, userAgent: o.userAgent, maxPages: o.maxPages}
}

// do executes a request and maps rate limits and non-2xx statuses to errors.
// The caller closes the body of a successful response.
func (r requester) do(ctx context.Context, method, reqURL string, body []byte, header http.Header) (*http.Response, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return nil, &UpstreamError{Source: r.source, URL: redactURL(reqURL), Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Source: r.source, URL: redactURL(reqURL), Err: err}
	}

	if rlErr := checkRateLimit(resp); rlErr != nil {
		_ = resp.Body.Close()
		return nil, rlErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &UpstreamError{Source: r.source, URL: redactURL(reqURL), Status: resp.StatusCode}
	}
	return resp, nil
}

// getJSON decodes a JSON response into out and returns the response headers.
func (r requester) getJSON(ctx context.Context, reqURL string, header http.Header, out any) (http.Header, error) {
	resp, err := r.do(ctx, http.MethodGet, reqURL, nil, header)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return nil, &UpstreamError{Source: r.source, URL: redactURL(reqURL), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return resp.Header, nil
}

// getText returns the body of a response as a string.
func (r requester) getText(ctx context.Context, reqURL string) (string, error) {
	resp, err := r.do(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &UpstreamError{Source: r.source, URL: redactURL(reqURL), Err: err}
	}
	return string(data), nil
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
// Missing or malformed headers are ignored.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.
	return &RateLimitError{Limit: limit, Remaining: 0, ResetAt: time.Unix(resetUnix, 0)}
}

// parseLinkHeader extracts the URL for the "next" page from a Link header.
// Returns an empty string if no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// redactURL strips query parameters and fragments for error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
