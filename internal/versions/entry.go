// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"context"
	"iter"
	"time"
)

type (
	// Entry is one raw candidate from a version source. Version is the
	// string to parse; Tag, when set, is the upstream ref it came from.
	Entry struct {
		Version string
		Tag     string
		Date    time.Time
	}

	// Source lists raw candidates. Sequences are lazy and stop at the first
	// error.
	Source interface {
		Entries(ctx context.Context) iter.Seq2[Entry, error]
	}

	// SourceFunc adapts a function to Source.
	SourceFunc func(ctx context.Context) iter.Seq2[Entry, error]
)

// Entries calls f.
func (f SourceFunc) Entries(ctx context.Context) iter.Seq2[Entry, error] {
	return f(ctx)
}

// fail returns a sequence that yields a single error.
func fail(err error) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		yield(Entry{}, err)
	}
}
