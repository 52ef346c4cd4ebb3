// SPDX-License-Identifier: MPL-2.0

// Package resolver picks the concrete version of a package requirement: the
// highest discovered version its constraint admits.
package resolver
