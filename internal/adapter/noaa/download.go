package noaa

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Retriever downloads a grid file to a local temporary path.
// It implements pipeline.Retriever.
type Retriever struct {
	client  *Client
	tempDir string
	timeout time.Duration
}

// NewRetriever creates a Retriever writing into cfg.TempDir (OS default when empty).
func NewRetriever(client *Client, cfg *config.Config) *Retriever {
	return &Retriever{
		client:  client,
		tempDir: cfg.TempDir,
		timeout: cfg.DownloadTimeout,
	}
}

// Fetch downloads rawURL, gunzipping ".gz" payloads, into a new "*.grib2" temp
// file and returns its path. The caller owns the file.
func (r *Retriever) Fetch(ctx context.Context, rawURL string) (string, error) {
	defer r.client.observe(observability.StageDownload, time.Now())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.get(ctx, rawURL)
	if err != nil {
		return "", &domain.DownloadError{URL: rawURL, StatusCode: statusCode(err), Err: err}
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if isGzipURL(rawURL) {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", &domain.DownloadError{URL: rawURL, Err: err}
		}
		defer gz.Close()
		body = gz
	}

	f, err := os.CreateTemp(r.tempDir, "mrms-*.grib2")
	if err != nil {
		return "", &domain.DownloadError{URL: rawURL, Err: err}
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name()) //nolint:errcheck // best-effort cleanup of a partial file
		return "", &domain.DownloadError{URL: rawURL, Err: err}
	}

	r.client.metrics.DownloadBytes.Add(float64(n))
	r.client.logger.Info("downloaded grid file", "url", rawURL, "bytes", n, "path", f.Name())
	return f.Name(), nil
}

func isGzipURL(rawURL string) bool {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.HasSuffix(u.Path, ".gz")
	}
	return strings.HasSuffix(rawURL, ".gz")
}
