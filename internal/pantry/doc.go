// SPDX-License-Identifier: MPL-2.0

// Package pantry reads package manifests (projects/<project>/package.yml)
// from one or more pantry roots.
//
// Manifests are decoded with an ordered mapping type so that env blocks keep
// the order they were written in, then validated against an embedded CUE
// schema. Accessors expose the parts other packages need: the versions node,
// build and test scripts, platforms, provides, dependencies reduced for a
// host, and the distributable URL.
package pantry
