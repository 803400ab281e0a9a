// Package router implements the query routing core: batched read and
// find requests are partitioned by identifier scheme, dispatched to
// the owning repositories, and reassembled in the caller's order.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/repository"
	"github.com/sverreng/dtss/internal/series"
)

// Result is one position of a read response. Either Series is set, or
// Err carries the repository-level failure for that identifier. The
// slice of Results returned by Read is always the same length as the
// identifier batch, position i corresponding to identifier i.
type Result struct {
	ID     string
	Series series.Series
	Err    error
}

// Config holds the router options.
type Config struct {
	// RepoTimeout bounds each repository invocation. Zero means no
	// timeout; repositories may then block as long as the request
	// context allows.
	RepoTimeout time.Duration

	Logger *logrus.Logger
}

// Router dispatches read and find requests to the repositories in its
// registry. It holds no per-request state, so a single Router serves
// concurrent requests without locking.
type Router struct {
	registry *Registry
	timeout  time.Duration
	logger   *logrus.Logger
}

// New creates a router over the given registry.
func New(registry *Registry, cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Router{
		registry: registry,
		timeout:  cfg.RepoTimeout,
		logger:   logger,
	}
}

// group collects the identifiers routed to one repository, together
// with their positions in the original batch. Identifiers keep their
// relative input order within the group.
type group struct {
	repo      repository.Repository
	ids       []string
	positions []int
}

// Read resolves every identifier to its owning repository, invokes each
// repository once with its sub-batch, and reassembles the responses in
// the order the identifiers were given.
//
// Routing failures (malformed identifier, unknown scheme) fail the
// whole batch before any repository is invoked: positional integrity is
// a hard contract, and a partially routed batch cannot honor it.
// Repository-level failures are tolerated per position: a failed
// repository call marks only its own identifiers and the rest of the
// batch still succeeds.
func (r *Router) Read(ctx context.Context, ids []string, period series.Period) ([]Result, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("read period %s: start after end", period)
	}

	groups, order, err := r.partition(ids)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"ts_ids":       len(ids),
		"repositories": len(order),
		"period":       period.String(),
	}).Debug("Routing read batch")

	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i].ID = id
	}

	for _, scheme := range order {
		g := groups[scheme]

		// A dropped request should not keep hitting repositories.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := r.readGroup(ctx, g, period)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"scheme": scheme,
				"ts_ids": len(g.ids),
			}).WithError(err).Warn("Repository read failed")
			for _, pos := range g.positions {
				results[pos].Err = err
			}
			continue
		}

		for i, pos := range g.positions {
			results[pos].Series = data[i]
		}
	}

	return results, nil
}

// Find parses the scheme from the query and forwards it to the single
// owning repository. The repository's metadata is returned unmodified.
func (r *Router) Find(ctx context.Context, query string) ([]series.Info, error) {
	scheme, err := series.SchemeOf(query)
	if err != nil {
		return nil, err
	}
	repo, err := r.registry.Lookup(scheme)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"scheme": scheme,
		"query":  query,
	}).Debug("Routing find query")

	ctx, cancel := r.boundCtx(ctx)
	defer cancel()
	return repo.Find(ctx, query)
}

// partition resolves every identifier before any repository is called,
// grouping them by owning repository. order preserves the sequence in
// which schemes first appear so dispatch is deterministic.
func (r *Router) partition(ids []string) (map[string]*group, []string, error) {
	groups := make(map[string]*group)
	var order []string

	for pos, id := range ids {
		scheme, err := series.SchemeOf(id)
		if err != nil {
			return nil, nil, err
		}
		repo, err := r.registry.Lookup(scheme)
		if err != nil {
			return nil, nil, err
		}

		g, ok := groups[scheme]
		if !ok {
			g = &group{repo: repo}
			groups[scheme] = g
			order = append(order, scheme)
		}
		g.ids = append(g.ids, id)
		g.positions = append(g.positions, pos)
	}

	return groups, order, nil
}

// readGroup invokes one repository with its sub-batch, applying the
// configured timeout. A response whose length does not match the
// sub-batch is treated as a repository failure: accepting it would
// misalign every position behind it.
func (r *Router) readGroup(ctx context.Context, g *group, period series.Period) ([]series.Series, error) {
	ctx, cancel := r.boundCtx(ctx)
	defer cancel()

	data, err := g.repo.Read(ctx, g.ids, period)
	if err != nil {
		return nil, fmt.Errorf("repository %q read: %w", g.repo.Name(), err)
	}
	if len(data) != len(g.ids) {
		return nil, fmt.Errorf("repository %q returned %d series for %d ts_ids",
			g.repo.Name(), len(data), len(g.ids))
	}
	return data, nil
}

func (r *Router) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}
