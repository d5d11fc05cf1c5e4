package noaa

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

const testUserAgent = "radar-test/1.0"

var testNow = time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		UpstreamBaseURL: baseURL,
		UserAgent:       testUserAgent,
		ListingTimeout:  5 * time.Second,
		DownloadTimeout: 5 * time.Second,
		LookbackDays:    7,
		BreakerFailures: 5,
		BreakerCooldown: time.Minute,
	}
}

func testClient(cfg *config.Config) *Client {
	return NewClient(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testResolver(baseURL string) *Resolver {
	cfg := testConfig(baseURL)
	return NewResolver(testClient(cfg), domain.DefaultSources(), cfg, clockwork.NewFakeClockAt(testNow))
}

type object struct {
	key          string
	lastModified string
}

// fakeBucket serves S3 v1 listings keyed by prefix and raw objects keyed by path.
type fakeBucket struct {
	mu       sync.Mutex
	listings map[string][]object
	failing  map[string]bool
	objects  map[string][]byte
	// failAfter fails the page requested with this marker.
	failAfter map[string]bool
	pageSize int
	prefixes []string
	agents   []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		listings:  map[string][]object{},
		failing:   map[string]bool{},
		objects:   map[string][]byte{},
		failAfter: map[string]bool{},
	}
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.agents = append(b.agents, r.UserAgent())

	if r.URL.Path != "/" {
		data, ok := b.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	b.prefixes = append(b.prefixes, prefix)
	if b.failing[prefix] || b.failAfter[r.URL.Query().Get("marker")] {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries := b.listings[prefix]
	truncated := false
	if b.pageSize > 0 {
		start := 0
		if marker := r.URL.Query().Get("marker"); marker != "" {
			for i, e := range entries {
				if e.key == marker {
					start = i + 1
				}
			}
		}
		end := min(start+b.pageSize, len(entries))
		truncated = end < len(entries)
		entries = entries[start:end]
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&sb, "<Name>noaa-mrms-pds</Name><Prefix>%s</Prefix><IsTruncated>%t</IsTruncated>", prefix, truncated)
	for _, e := range entries {
		sb.WriteString("<Contents><Key>" + e.key + "</Key>")
		if e.lastModified != "" {
			sb.WriteString("<LastModified>" + e.lastModified + "</LastModified>")
		}
		sb.WriteString("<Size>1024</Size></Contents>")
	}
	sb.WriteString("</ListBucketResult>")

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, sb.String())
}

func (b *fakeBucket) requestedPrefixes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prefixes...)
}

func startBucket(t *testing.T, b *fakeBucket) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return srv
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
