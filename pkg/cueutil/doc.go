// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates configuration and manifest data against
// embedded CUE schemas.
//
// Two entry points share one compile/unify/validate flow:
//
//   - ParseAndDecode compiles CUE source (the config file) and decodes it.
//   - ValidateData encodes already-parsed Go data (a YAML manifest) and
//     checks it against a schema definition.
//
// Errors carry the JSON-style path of the offending field, e.g.
// "package.yml: versions.github: conflicting values".
package cueutil
