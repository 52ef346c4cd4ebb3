// SPDX-License-Identifier: MPL-2.0

// Package versions discovers the versions a manifest's `versions` node
// describes.
//
// A node is a list of literal versions and source descriptors, or a single
// descriptor. Descriptors name one of four sources:
//
//   - github: "owner/repo[/releases|/tags|/releases/tags]". Releases are
//     read over REST with Link pagination; tags over GraphQL, oldest commit
//     first, capped at a configurable count.
//   - gitlab: "[server:]group/project[/releases|/tags]".
//   - npm: a registry package; every strict, non-prerelease key.
//   - url: a page scraped with a `match` regex.
//
// Raw names are stripped, filtered through `ignore` patterns and normalized
// into versions by a Normalizer, or handed to a Transformer when the
// descriptor carries a `transform` function. Candidates that fail are
// skipped and logged at debug level. Discoverer.Discover returns the
// de-duplicated union sorted ascending.
package versions
