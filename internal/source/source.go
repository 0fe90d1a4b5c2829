// Package source defines the closed variant set of entropy origins the
// dispatcher cycles through. Each Source is a tagged-sum member with a
// cheap Probe and a Draw that may block; there is no open interface
// hierarchy to extend, since the priority order and membership are a
// source-level design change, not a runtime plugin point (see the
// teacher-pack convention of a handful of concrete RNG types rather
// than a registry).
package source

import (
	"context"

	"github.com/mixrand/mixrand/internal/sample"
)

// Source is one entropy origin in the dispatch cascade.
type Source interface {
	// ID names the source for logging and for the EntropySample tag.
	ID() sample.SourceID

	// Probe reports whether the source's preconditions are currently
	// met (device present, CPUID bit set, daemon running). Probe must
	// not block on I/O beyond a cheap stat/CPUID check.
	Probe(ctx context.Context) bool

	// Draw reads n bytes from the source. Callers must have called
	// Probe and only invoke Draw when it returned true. A non-nil
	// error here is a mixerr SourceFailed, except that hwrng reports
	// SourceUnavailable when its device cannot be opened.
	Draw(ctx context.Context, n int) (*sample.EntropySample, error)
}
