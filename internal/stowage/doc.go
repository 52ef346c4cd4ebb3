// SPDX-License-Identifier: MPL-2.0

// Package stowage names bottles and source archives and recovers the package,
// version and host from those names.
package stowage
