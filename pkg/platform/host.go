// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	goruntime "runtime"
	"strings"
)

// ErrUnsupportedHost is returned when the running system has no pantry name.
var ErrUnsupportedHost = errors.New("unsupported host")

// Host identifies the machine a script is generated for.
type Host struct {
	Platform    string `json:"platform"`
	Arch        string `json:"arch"`
	Concurrency int    `json:"concurrency"`
}

// Detect maps the running process's GOOS/GOARCH onto pantry names.
func Detect() (Host, error) {
	return detect(goruntime.GOOS, goruntime.GOARCH, goruntime.NumCPU())
}

func detect(goos, goarch string, cpus int) (Host, error) {
	h := Host{Concurrency: cpus}

	switch goos {
	case Darwin, Linux, Windows:
		h.Platform = goos
	default:
		return Host{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedHost, goos, goarch)
	}

	switch goarch {
	case "arm64":
		h.Arch = AArch64
	case "amd64":
		h.Arch = X8664
	default:
		return Host{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedHost, goos, goarch)
	}
	return h, nil
}

// ParseHost parses "platform/arch".
func ParseHost(s string) (Host, error) {
	p, a, ok := strings.Cut(s, "/")
	if !ok || !IsPlatform(p) || !IsArch(a) {
		return Host{}, fmt.Errorf("%w: %q", ErrUnsupportedHost, s)
	}
	return Host{Platform: p, Arch: a, Concurrency: 1}, nil
}

// String returns "platform/arch".
func (h Host) String() string {
	return h.Platform + "/" + h.Arch
}

// Target returns the LLVM-style target triple, e.g. "aarch64-apple-darwin".
func (h Host) Target() string {
	arch := h.Arch
	if arch == X8664 {
		arch = "x86_64"
	}
	switch h.Platform {
	case Darwin:
		return arch + "-apple-darwin"
	case Linux:
		return arch + "-unknown-linux-gnu"
	case Windows:
		return arch + "-pc-windows-msvc"
	}
	return arch + "-unknown-" + h.Platform
}

// Matches reports whether a manifest filter key ("linux", "aarch64" or
// "darwin/x86-64") selects this host.
func (h Host) Matches(key string) bool {
	if p, a, ok := strings.Cut(key, "/"); ok {
		return p == h.Platform && a == h.Arch
	}
	return key == h.Platform || key == h.Arch
}
