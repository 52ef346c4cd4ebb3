// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"iter"
	"log/slog"
	"net/url"
	"slices"

	mmsemver "github.com/Masterminds/semver/v3"
	"golang.org/x/exp/maps"
)

const defaultNPMRegistry = "https://registry.npmjs.org"

type (
	// NPMClient lists the published versions of an npm package.
	NPMClient struct {
		req     requester
		baseURL string
	}

	npmPackument struct {
		Versions map[string]any `json:"versions"`
	}
)

// NewNPMClient creates an NPMClient against registry.npmjs.org unless
// WithBaseURL says otherwise.
func NewNPMClient(opts ...Option) *NPMClient {
	o := applyOptions(opts)
	c := &NPMClient{req: newRequester("npm", o), baseURL: o.baseURL}
	if c.baseURL == "" {
		c.baseURL = defaultNPMRegistry
	}
	return c
}

// Source returns the listing for pkg minus the literal versions in ignore.
func (c *NPMClient) Source(pkg string, ignore []string) Source {
	return SourceFunc(func(ctx context.Context) iter.Seq2[Entry, error] {
		return c.Entries(ctx, pkg, ignore)
	})
}

// Entries yields the registry's version keys in sorted order. Keys that are
// not strict node-semver, or that are prereleases, are dropped.
func (c *NPMClient) Entries(ctx context.Context, pkg string, ignore []string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		var doc npmPackument
		if _, err := c.req.getJSON(ctx, c.baseURL+"/"+url.PathEscape(pkg), nil, &doc); err != nil {
			yield(Entry{}, err)
			return
		}

		keys := maps.Keys(doc.Versions)
		slices.Sort(keys)
		for _, k := range keys {
			if slices.Contains(ignore, k) {
				slog.Debug("ignoring version", "version", k, "reason", "explicit")
				continue
			}
			v, err := mmsemver.StrictNewVersion(k)
			if err != nil {
				slog.Debug("ignoring version", "version", k, "reason", "unparsable")
				continue
			}
			if v.Prerelease() != "" {
				slog.Debug("ignoring version", "version", k, "reason", "prerelease")
				continue
			}
			if !yield(Entry{Version: k}, nil) {
				return
			}
		}
	}
}
