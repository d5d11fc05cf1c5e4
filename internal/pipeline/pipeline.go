package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Resolver finds the newest upstream grid file.
type Resolver interface {
	ResolveLatest(ctx context.Context) (domain.Resolution, error)
}

// Retriever downloads a file to a local path owned by the caller.
type Retriever interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Decoder reads a local grid file.
type Decoder interface {
	Decode(path string) (domain.RawGrid, error)
}

// Cache stores the most recent collection.
type Cache interface {
	ReadIfFresh() (domain.FeatureCollection, bool, error)
	ReadRegardless() (domain.FeatureCollection, bool, error)
	Write(fc domain.FeatureCollection) error
	Status() (domain.CacheStatus, error)
	CheckReadiness(ctx context.Context) error
}

// flightKey identifies the single cache slot for request coalescing.
const flightKey = "latest"

// Pipeline serves the latest collection from cache or by running
// resolve, download, decode and project against the upstream.
type Pipeline struct {
	resolver     Resolver
	retriever    Retriever
	decoder      Decoder
	cache        Cache
	projector    domain.Projector
	logger       *slog.Logger
	metrics      *observability.Metrics
	flight       singleflight.Group
	singleFlight bool
}

// New creates a Pipeline. With singleFlight set, concurrent cache misses share
// one upstream run.
func New(r Resolver, f Retriever, d Decoder, c Cache, projector domain.Projector, logger *slog.Logger, metrics *observability.Metrics, singleFlight bool) *Pipeline {
	return &Pipeline{
		resolver:     r,
		retriever:    f,
		decoder:      d,
		cache:        c,
		projector:    projector,
		logger:       logger,
		metrics:      metrics,
		singleFlight: singleFlight,
	}
}

// CheckReadiness reports whether the cache can be used.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	return p.cache.CheckReadiness(ctx)
}

// Status describes the cache slot.
func (p *Pipeline) Status() (domain.CacheStatus, error) {
	return p.cache.Status()
}

// Latest returns a fresh cached collection when there is one, otherwise runs
// the pipeline. Pipeline failures fall back to any cached collection and are
// reported through LatestResult.Cause; the returned error is reserved for
// cache I/O failures.
func (p *Pipeline) Latest(ctx context.Context) (domain.LatestResult, error) {
	if res, ok, err := p.fromFreshCache(); err != nil || ok {
		return res, err
	}
	p.metrics.CacheLookups.WithLabelValues("miss").Inc()

	if !p.singleFlight {
		return p.refresh(ctx)
	}

	// The shared run must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := p.flight.Do(flightKey, func() (interface{}, error) {
		return p.refresh(flightCtx)
	})
	if err != nil {
		return domain.LatestResult{}, err
	}
	if shared {
		p.logger.Debug("joined in-flight refresh")
	}
	return v.(domain.LatestResult), nil
}

func (p *Pipeline) fromFreshCache() (domain.LatestResult, bool, error) {
	fc, ok, err := p.cache.ReadIfFresh()
	if err != nil {
		return domain.LatestResult{}, false, fmt.Errorf("read cache: %w", err)
	}
	if !ok {
		return domain.LatestResult{}, false, nil
	}
	p.metrics.CacheLookups.WithLabelValues("fresh").Inc()
	return domain.LatestResult{Collection: fc, Found: true, Origin: domain.OriginCache}, true, nil
}

// refresh runs the pipeline once and resolves failures against the cache.
func (p *Pipeline) refresh(ctx context.Context) (domain.LatestResult, error) {
	// An earlier flight may have filled the slot while this one queued.
	if res, ok, err := p.fromFreshCache(); err != nil || ok {
		return res, err
	}

	fc, err := p.produce(ctx)
	if err == nil {
		if werr := p.cache.Write(fc); werr != nil {
			p.logger.Error("cache write failed", "error", werr)
			p.metrics.StageErrors.WithLabelValues(observability.StageCache).Inc()
		}
		p.metrics.PipelineRuns.WithLabelValues(string(domain.OriginUpstream)).Inc()
		p.metrics.FeaturesEmitted.Set(float64(fc.Metadata.Count))
		return domain.LatestResult{Collection: fc, Found: true, Origin: domain.OriginUpstream}, nil
	}

	p.logger.Warn("pipeline failed, falling back to cache", "error", err)

	stale, ok, rerr := p.cache.ReadRegardless()
	if rerr != nil {
		return domain.LatestResult{}, fmt.Errorf("read stale cache: %w", rerr)
	}
	if !ok {
		p.metrics.PipelineRuns.WithLabelValues("empty").Inc()
		return domain.LatestResult{Found: false, Cause: err}, nil
	}

	p.metrics.PipelineRuns.WithLabelValues(string(domain.OriginStale)).Inc()
	return domain.LatestResult{Collection: stale, Found: true, Origin: domain.OriginStale, Cause: err}, nil
}

// produce runs resolve, download, decode and project. The downloaded file is
// removed before returning on every path.
func (p *Pipeline) produce(ctx context.Context) (domain.FeatureCollection, error) {
	res, err := p.resolver.ResolveLatest(ctx)
	if err != nil {
		p.metrics.StageErrors.WithLabelValues(observability.StageResolve).Inc()
		return domain.FeatureCollection{}, err
	}

	path, err := p.retriever.Fetch(ctx, res.File.URL)
	if err != nil {
		p.metrics.StageErrors.WithLabelValues(observability.StageDownload).Inc()
		return domain.FeatureCollection{}, err
	}
	defer p.removeTemp(path)

	grid, err := p.decoder.Decode(path)
	if err != nil {
		p.metrics.StageErrors.WithLabelValues(observability.StageDecode).Inc()
		return domain.FeatureCollection{}, err
	}

	start := time.Now()
	fc := p.projector.Project(grid, res.Source.Product)
	p.metrics.StageDuration.WithLabelValues(observability.StageProject).Observe(time.Since(start).Seconds())

	p.logger.Info("radar collection produced",
		"product", res.Source.Product,
		"file", res.File.Filename,
		"variable", grid.Variable,
		"timestamp", fc.Metadata.Timestamp,
		"features", fc.Metadata.Count,
	)
	return fc, nil
}

func (p *Pipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("remove temp file failed", "path", path, "error", err)
	}
}
