// Package repository defines the interface every data collection
// repository implements. A repository owns one identifier scheme and
// produces time series data and metadata for identifiers under it.
//
// Known implementations:
//   - netatmo: remote weather station API
//   - store: local TimescaleDB cache of collected series
//   - heartbeat: synthetic liveness responder
package repository

import (
	"context"

	"github.com/sverreng/dtss/internal/series"
)

// Repository is the capability set the router consumes. Implementations
// must be safe for concurrent use; the router invokes them from
// concurrent request handlers without additional serialization.
type Repository interface {
	// Name returns the identifier scheme this repository owns.
	// It is constant for the lifetime of the repository.
	Name() string

	// Read returns one series per identifier, in the same order the
	// identifiers were given, each covering at least the read period.
	Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error)

	// Find returns metadata for every series matching the query.
	Find(ctx context.Context, query string) ([]series.Info, error)
}
