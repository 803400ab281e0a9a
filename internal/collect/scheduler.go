package collect

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/series"
)

const collectTimeout = 2 * time.Minute

// Scheduler runs incremental collection passes on a cron schedule.
type Scheduler struct {
	ctx       context.Context
	collector *Collector
	logger    *logrus.Logger
	cron      *cron.Cron

	spec   string
	window time.Duration
}

// NewScheduler creates a scheduler that collects the trailing window
// on every tick of spec (standard 5-field cron syntax).
func NewScheduler(ctx context.Context, collector *Collector, spec string, window time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		ctx:       ctx,
		collector: collector,
		logger:    logger,
		cron:      cron.New(),
		spec:      spec,
		window:    window,
	}
}

// Start the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.collectData)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"spec":   s.spec,
		"window": s.window.String(),
	}).Info("Collection scheduler started")
	return nil
}

// collectData fetches the trailing window from the source and stores
// it locally.
func (s *Scheduler) collectData() {
	ctx, cancel := context.WithTimeout(s.ctx, collectTimeout)
	defer cancel()

	end := time.Now()
	start := end.Add(-s.window)

	if err := s.collector.Collect(ctx, series.Period{Start: start, End: end}); err != nil {
		s.logger.WithError(err).Error("Failed to collect data")
	}
}

// Stop the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
