// Package series holds the shared time series data structures: points,
// series, metadata and the read period, plus the identifier scheme
// parsing used to route identifiers to their owning repository.
package series

import (
	"fmt"
	"strings"
	"time"
)

// Point is a single time series data point.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is the data for one time series identifier. The router treats
// it as an opaque handle: it is produced by a repository and handed
// back to the caller without inspection.
type Series struct {
	ID     string  `json:"ts_id"`
	Points []Point `json:"points"`
}

// Info is the metadata a repository returns for a find query.
type Info struct {
	ID         string    `json:"ts_id"`
	Name       string    `json:"name"`
	Period     Period    `json:"period"`
	PointCount int64     `json:"point_count"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// Period is the half-open time interval [Start, End) of a read request.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the period is ordered.
func (p Period) Valid() bool {
	return !p.Start.After(p.End)
}

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
}

// InvalidIdentifierError reports an identifier that carries no scheme
// and therefore cannot be routed to any repository.
type InvalidIdentifierError struct {
	ID string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid ts_id %q: missing scheme", e.ID)
}

// SchemeOf extracts the scheme token from an identifier of the form
// <scheme>:<scheme-specific-part>. The scheme must be non-empty;
// identifiers without a delimiter are rejected.
func SchemeOf(id string) (string, error) {
	idx := strings.Index(id, ":")
	if idx <= 0 {
		return "", &InvalidIdentifierError{ID: id}
	}
	return id[:idx], nil
}
