// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstream marks a failure talking to a version source: a non-2xx
	// response, a malformed body or an exhausted rate limit. It is not
	// retried here.
	ErrUpstream = errors.New("upstream failure")

	// ErrNoCredentials is returned when GitHub GraphQL is needed and neither
	// a token nor the credential helper produced one.
	ErrNoCredentials = errors.New("no GitHub credentials: set GITHUB_TOKEN or run `gh auth login`")
)

type (
	// UpstreamError describes a failed request to a version source.
	UpstreamError struct {
		Source string
		URL    string
		Status int
		Err    error
	}

	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}
)

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: status %d: %v", e.Source, e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s: unexpected status %d", e.Source, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Source, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s: request failed", e.Source, e.URL)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes every UpstreamError match ErrUpstream.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

func (e *RateLimitError) Unwrap() error { return ErrUpstream }
