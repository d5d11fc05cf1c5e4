package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// RadarService is what the API needs from the pipeline.
type RadarService interface {
	Latest(ctx context.Context) (domain.LatestResult, error)
	Status() (domain.CacheStatus, error)
	CheckReadiness(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	Addr            string
	StaticDir       string // served at / when set
	UpdateFrequency string
	CacheDuration   time.Duration
}

// writeTimeout covers a cold-cache request that walks every listing and
// downloads a full grid.
const writeTimeout = 5 * time.Minute

// Server exposes the radar API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	radar      RadarService
	opts       Options
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires routes and middleware.
func NewServer(opts Options, radar RadarService, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		radar:   radar,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.countRequests(s.recoverPanics(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	c := newCORS()
	mux.Handle("GET /api/health", c.Handler(http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/radar/latest", c.Handler(http.HandlerFunc(s.handleLatest)))
	mux.Handle("GET /api/radar/info", c.Handler(http.HandlerFunc(s.handleInfo)))
	// Preflights end inside the CORS handler.
	mux.Handle("OPTIONS /api/", c.Handler(http.NotFoundHandler()))

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(radar))
	mux.Handle("GET /metrics", promhttp.Handler())

	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
