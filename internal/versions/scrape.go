// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"iter"
	"log/slog"
	"regexp"
)

// calverRegex matches a bare ISO date, rewritten to dotted calendar form.
var calverRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Scraper extracts version strings from an arbitrary web page, typically a
// directory listing.
type Scraper struct {
	req requester
}

// NewScraper creates a Scraper.
func NewScraper(opts ...Option) *Scraper {
	return &Scraper{req: newRequester("url", applyOptions(opts))}
}

// Source returns the matches of match in the page at pageURL, each stripped
// by strip in order. ISO dates become dotted (2024-05-01 → 2024.05.01).
// Identical matches are yielded once; listings often repeat a version in
// both the href and the link text.
func (s *Scraper) Source(pageURL string, match *regexp.Regexp, strip []*regexp.Regexp) Source {
	return SourceFunc(func(ctx context.Context) iter.Seq2[Entry, error] {
		return func(yield func(Entry, error) bool) {
			body, err := s.req.getText(ctx, pageURL)
			if err != nil {
				yield(Entry{}, err)
				return
			}

			seen := map[string]bool{}
			for _, m := range match.FindAllString(body, -1) {
				text := stripAll(m, strip)
				if c := calverRegex.FindStringSubmatch(text); c != nil {
					text = c[1] + "." + c[2] + "." + c[3]
				}
				if seen[text] {
					continue
				}
				seen[text] = true
				slog.Debug("scraped candidate", "match", m, "candidate", text)
				if !yield(Entry{Version: text, Tag: m}, nil) {
					return
				}
			}
		}
	})
}
