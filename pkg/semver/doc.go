// SPDX-License-Identifier: MPL-2.0

// Package semver parses, orders and constrains package versions.
//
// Versions are more permissive than strict SemVer: any number of numeric
// components is accepted (1, 1.2, 1.2.3.4), and archive filenames may use a
// trailing letter (1.1.1q) via ParseTolerant. Ranges use the pkgx grammar
// (^, ~, @, =, comparison operators and comma-separated unions).
package semver
