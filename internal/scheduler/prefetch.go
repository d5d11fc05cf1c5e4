// Package scheduler keeps the radar cache warm by refreshing it on a timer.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Source produces the latest collection, refreshing the cache when stale.
type Source interface {
	Latest(ctx context.Context) (domain.LatestResult, error)
}

// Prefetcher calls Source.Latest every interval, never overlapping runs.
type Prefetcher struct {
	source    Source
	interval  time.Duration
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

// NewPrefetcher creates a Prefetcher. It does nothing until Start.
func NewPrefetcher(source Source, interval time.Duration, logger *slog.Logger) *Prefetcher {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Prefetcher{
		source:    source,
		interval:  interval,
		scheduler: s,
		logger:    logger,
	}
}

// Start schedules the refresh job, running it once immediately.
func (p *Prefetcher) Start(ctx context.Context) error {
	if _, err := p.scheduler.Every(p.interval).Do(p.run, ctx); err != nil {
		return fmt.Errorf("schedule prefetch: %w", err)
	}
	p.scheduler.StartAsync()
	p.logger.Info("prefetch started", "interval", p.interval)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (p *Prefetcher) Stop() {
	p.scheduler.Stop()
	p.logger.Info("prefetch stopped")
}

func (p *Prefetcher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := p.source.Latest(ctx)
	switch {
	case err != nil:
		p.logger.Error("prefetch failed", "error", err)
	case !res.Found:
		p.logger.Warn("prefetch found no radar data", "cause", res.Cause)
	case res.Origin == domain.OriginStale:
		p.logger.Warn("prefetch served stale data", "cause", res.Cause)
	default:
		p.logger.Debug("prefetch complete", "origin", res.Origin, "features", res.Collection.Metadata.Count)
	}
}
