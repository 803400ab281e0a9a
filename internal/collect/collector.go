// Package collect moves series from a source repository into the local
// store, so later queries are served from disk instead of the remote
// API. A collector fetches configured identifiers and upserts them
// under translated store identifiers; the scheduler drives it.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/repository/store"
	"github.com/sverreng/dtss/internal/series"
)

// Source is the read capability the collector pulls from.
type Source interface {
	Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error)
}

// Sink is the write capability the collector pushes into.
type Sink interface {
	BatchInsert(ctx context.Context, data []series.Series) error
}

// Collector fetches a fixed set of source identifiers and stores the
// results locally.
type Collector struct {
	source Source
	sink   Sink
	ids    []string
	logger *logrus.Logger
}

// New creates a collector for the given source identifiers.
func New(source Source, sink Sink, ids []string, logger *logrus.Logger) *Collector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Collector{
		source: source,
		sink:   sink,
		ids:    ids,
		logger: logger,
	}
}

// Collect reads all configured identifiers over the period and upserts
// them into the sink under their store identifiers.
func (c *Collector) Collect(ctx context.Context, period series.Period) error {
	if len(c.ids) == 0 {
		return nil
	}

	data, err := c.source.Read(ctx, c.ids, period)
	if err != nil {
		return fmt.Errorf("collect read: %w", err)
	}

	points := 0
	for i := range data {
		storeID, err := StoreID(data[i].ID)
		if err != nil {
			return fmt.Errorf("collect translate %q: %w", data[i].ID, err)
		}
		data[i].ID = storeID
		points += len(data[i].Points)
	}

	if err := c.sink.BatchInsert(ctx, data); err != nil {
		return fmt.Errorf("collect store: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"ts_ids": len(data),
		"points": points,
		"period": period.String(),
	}).Info("Collection pass done")
	return nil
}

// Bootstrap collects up to two years of history in one pass.
func (c *Collector) Bootstrap(ctx context.Context) error {
	end := time.Now()
	start := end.AddDate(-2, 0, 0)
	return c.Collect(ctx, series.Period{Start: start, End: end})
}

// StoreID translates a source identifier into the identifier the same
// series has in the local store:
//
//	netatmo://home/Temperature -> store://netatmo/home/Temperature
func StoreID(sourceID string) (string, error) {
	scheme, err := series.SchemeOf(sourceID)
	if err != nil {
		return "", err
	}
	rest := strings.TrimPrefix(sourceID, scheme+"://")
	if rest == sourceID {
		// <scheme>:<rest> form without slashes.
		rest = strings.TrimPrefix(sourceID, scheme+":")
	}
	return fmt.Sprintf("%s://%s/%s", store.Scheme, scheme, rest), nil
}
