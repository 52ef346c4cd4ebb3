// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no manifest matches a name.
	ErrNotFound = errors.New("package not found")
	// ErrAmbiguous is returned when several manifests match a name.
	ErrAmbiguous = errors.New("ambiguous package name")
	// ErrManifest marks a malformed manifest. Always fatal.
	ErrManifest = errors.New("invalid manifest")
	// ErrUnavailable is returned when a manifest excludes the host platform.
	ErrUnavailable = errors.New("not available on this platform")
)

type (
	// NotFoundError wraps ErrNotFound.
	NotFoundError struct {
		Name string
	}

	// AmbiguousError wraps ErrAmbiguous and lists the candidates.
	AmbiguousError struct {
		Name       string
		Candidates []string
	}

	// ManifestError wraps ErrManifest. Field is a dotted path into the
	// manifest such as "build.script[2].run".
	ManifestError struct {
		Project string
		Field   string
		Reason  string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("package not found: %s", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous package name %q matches: %s", e.Name, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

func (e *ManifestError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid manifest")
	if e.Project != "" {
		sb.WriteString(" for ")
		sb.WriteString(e.Project)
	}
	if e.Field != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

func (e *ManifestError) Unwrap() error { return ErrManifest }

// ManifestErrorf builds a *ManifestError with a formatted reason.
func ManifestErrorf(project, field, format string, args ...any) *ManifestError {
	return &ManifestError{Project: project, Field: field, Reason: fmt.Sprintf(format, args...)}
}
