// Package app assembles the radar pipeline from configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-radar/internal/adapter/filecache"
	"github.com/couchcryptid/storm-data-radar/internal/adapter/grib2"
	"github.com/couchcryptid/storm-data-radar/internal/adapter/noaa"
	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
)

// NewPipeline wires the upstream client, decoder, cache and projector.
func NewPipeline(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*pipeline.Pipeline, error) {
	cache, err := filecache.New(cfg.CacheDir, cfg.CacheDuration, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	client := noaa.NewClient(cfg, metrics, logger)
	resolver := noaa.NewResolver(client, domain.DefaultSources(), cfg, clock)
	retriever := noaa.NewRetriever(client, cfg)
	decoder := grib2.NewDecoder(domain.DefaultVariableKeywords(), clock, metrics, logger)
	projector := domain.Projector{Stride: cfg.Stride, MinReflectivity: cfg.MinReflectivity}

	return pipeline.New(resolver, retriever, decoder, cache, projector, logger, metrics, cfg.SingleFlight), nil
}
