package noaa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

var gribPayload = []byte("GRIB\x00\x00\x00\x02fake grid payload7777")

func TestRetriever_Fetch_DecompressesGzip(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["/CONUS/x/20240103/file.grib2.gz"] = gzipBytes(t, gribPayload)
	srv := startBucket(t, bucket)

	cfg := testConfig(srv.URL)
	cfg.TempDir = t.TempDir()
	r := NewRetriever(testClient(cfg), cfg)

	path, err := r.Fetch(context.Background(), srv.URL+"/CONUS/x/20240103/file.grib2.gz")
	require.NoError(t, err)

	assert.Equal(t, cfg.TempDir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".grib2"))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, gribPayload, got)
	assert.Equal(t, []string{testUserAgent}, bucket.agents)
}

func TestRetriever_Fetch_PlainFile(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["/file.grib2"] = gribPayload
	srv := startBucket(t, bucket)

	cfg := testConfig(srv.URL)
	cfg.TempDir = t.TempDir()
	r := NewRetriever(testClient(cfg), cfg)

	path, err := r.Fetch(context.Background(), srv.URL+"/file.grib2")
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, gribPayload, got)
}

func TestRetriever_Fetch_NotFound(t *testing.T) {
	srv := startBucket(t, newFakeBucket())

	cfg := testConfig(srv.URL)
	cfg.TempDir = t.TempDir()
	r := NewRetriever(testClient(cfg), cfg)

	_, err := r.Fetch(context.Background(), srv.URL+"/missing.grib2.gz")
	require.Error(t, err)

	var de *domain.DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusNotFound, de.StatusCode)

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp file on failure")
}

func TestRetriever_Fetch_CorruptGzipRemovesPartialFile(t *testing.T) {
	bucket := newFakeBucket()
	full := gzipBytes(t, gribPayload)
	bucket.objects["/truncated.grib2.gz"] = full[:len(full)-6]
	srv := startBucket(t, bucket)

	cfg := testConfig(srv.URL)
	cfg.TempDir = t.TempDir()
	r := NewRetriever(testClient(cfg), cfg)

	_, err := r.Fetch(context.Background(), srv.URL+"/truncated.grib2.gz")
	var de *domain.DownloadError
	require.ErrorAs(t, err, &de)
	assert.Zero(t, de.StatusCode)

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TempDir = t.TempDir()
	cfg.BreakerFailures = 2
	r := NewRetriever(testClient(cfg), cfg)

	for range 2 {
		_, err := r.Fetch(context.Background(), srv.URL+"/f.grib2")
		var de *domain.DownloadError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, http.StatusServiceUnavailable, de.StatusCode)
	}

	_, err := r.Fetch(context.Background(), srv.URL+"/f.grib2")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}
