// SPDX-License-Identifier: MPL-2.0

package platform

// Platform names as they appear in manifests.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Architecture names as they appear in manifests.
const (
	AArch64 = "aarch64"
	X8664   = "x86-64"
)

// IsPlatform reports whether s names a supported platform.
func IsPlatform(s string) bool {
	switch s {
	case Darwin, Linux, Windows:
		return true
	}
	return false
}

// IsArch reports whether s names a supported architecture.
func IsArch(s string) bool {
	return s == AArch64 || s == X8664
}

// Pairs returns every buildable platform/arch combination.
func Pairs() []string {
	return []string{
		Darwin + "/" + AArch64,
		Darwin + "/" + X8664,
		Linux + "/" + AArch64,
		Linux + "/" + X8664,
	}
}
