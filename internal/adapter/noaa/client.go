package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Client issues GET requests against the MRMS bucket through a circuit breaker.
// Timeouts come from the caller's context so listing and download can differ.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a bucket client from config.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.UpstreamBaseURL,
		userAgent:  cfg.UserAgent,
		metrics:    metrics,
		logger:     logger,
	}

	failures := uint32(cfg.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "noaa-mrms",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A caller giving up is not an upstream fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.Set(float64(to))
		},
	})

	return c
}

// BaseURL returns the bucket endpoint without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// statusCode extracts the HTTP status from err, or 0 if there was no response.
func statusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// get performs a GET and returns the response only for 2xx statuses.
// The caller must close the body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode, body: string(body)}
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	return result.(*http.Response), nil
}

// observe records how long a stage call took.
func (c *Client) observe(stage string, start time.Time) {
	c.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
