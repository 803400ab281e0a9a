// Package heartbeat implements a synthetic repository used to verify
// that the host is accepting calls. Every read returns a constant
// series covering the requested period and every find returns a single
// metadata entry echoing the query message, so a client can always get
// an answer through the full listener path.
package heartbeat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/repository"
	"github.com/sverreng/dtss/internal/series"
)

// Compile-time interface implementation check
var _ repository.Repository = (*Repository)(nil)

// Scheme is the identifier scheme the heartbeat repository owns.
const Scheme = "heartbeat"

// Repository answers every call with synthetic data.
type Repository struct {
	logger *logrus.Logger
}

// New creates a heartbeat repository.
func New(logger *logrus.Logger) *Repository {
	if logger == nil {
		logger = logrus.New()
	}
	return &Repository{logger: logger}
}

func (r *Repository) Name() string { return Scheme }

// Read returns, for each identifier, a flat series of value 1 spanning
// the read period.
func (r *Repository) Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error) {
	r.logger.WithField("ts_ids", len(ids)).Debug("Heartbeat read")

	points := []series.Point{{Time: period.Start, Value: 1}}
	// A sub-second period gets a single point; the closing point must
	// stay inside [start, end).
	if last := period.End.Add(-time.Second); last.After(period.Start) {
		points = append(points, series.Point{Time: last, Value: 1})
	}

	out := make([]series.Series, 0, len(ids))
	for _, id := range ids {
		out = append(out, series.Series{ID: id, Points: points})
	}
	return out, nil
}

// Find returns a single metadata entry echoing the query message.
func (r *Repository) Find(ctx context.Context, query string) ([]series.Info, error) {
	msg, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	r.logger.WithField("message", msg).Debug("Heartbeat find")

	now := time.Now()
	return []series.Info{{
		ID:       query,
		Name:     "heartbeat: " + msg,
		Period:   series.Period{Start: time.Unix(0, 0), End: time.Unix(1, 0)},
		Created:  now,
		Modified: now,
	}}, nil
}

// NewQuery builds a heartbeat find query carrying a message.
func NewQuery(message string) string {
	return fmt.Sprintf("%s://callback/%s", Scheme, message)
}

// ParseQuery extracts the message from a heartbeat query.
func ParseQuery(query string) (string, error) {
	scheme, err := series.SchemeOf(query)
	if err != nil {
		return "", err
	}
	if scheme != Scheme {
		return "", fmt.Errorf("query scheme %q does not match repository scheme %q", scheme, Scheme)
	}
	rest := strings.TrimPrefix(query, Scheme+"://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return "", nil
	}
	return parts[1], nil
}
