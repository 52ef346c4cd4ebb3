// SPDX-License-Identifier: MPL-2.0

// Package issue turns internal failures into messages a packager can act on.
//
// ActionableError records what brewkit was doing, which project or file was
// involved and what to try next. The issue catalog holds longer Markdown
// guides, rendered with glamour, for the failures packagers hit most often.
package issue
