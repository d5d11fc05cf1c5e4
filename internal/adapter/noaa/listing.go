package noaa

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

const (
	// maxListKeys is the page size requested from the bucket.
	maxListKeys = 1000

	// maxListPages bounds pagination for one (source, date) prefix.
	maxListPages = 10
)

// Resolver finds the newest grid file across candidate sources and recent dates.
// It implements pipeline.Resolver.
type Resolver struct {
	client       *Client
	sources      []domain.Source
	lookbackDays int
	timeout      time.Duration
	clock        clockwork.Clock
}

// NewResolver creates a Resolver that tries sources in the given order.
func NewResolver(client *Client, sources []domain.Source, cfg *config.Config, clock clockwork.Clock) *Resolver {
	return &Resolver{
		client:       client,
		sources:      sources,
		lookbackDays: cfg.LookbackDays,
		timeout:      cfg.ListingTimeout,
		clock:        clock,
	}
}

// ResolveLatest walks sources in priority order and, within each, dates from
// today (UTC) backwards. The first (source, date) listing with any grid file
// wins and its newest entry is returned. Failed listings count as empty.
func (r *Resolver) ResolveLatest(ctx context.Context) (domain.Resolution, error) {
	defer r.client.observe(observability.StageResolve, time.Now())

	today := r.clock.Now().UTC()
	for _, src := range r.sources {
		for daysAgo := 0; daysAgo < r.lookbackDays; daysAgo++ {
			date := today.AddDate(0, 0, -daysAgo)

			files, err := r.list(ctx, src, date)
			switch {
			case err != nil && ctx.Err() != nil:
				return domain.Resolution{}, fmt.Errorf("resolve latest: %w", ctx.Err())
			case err != nil && len(files) == 0:
				r.client.logger.Warn("listing failed, treating as empty",
					"prefix", src.Prefix,
					"date", date.Format("20060102"),
					"error", err,
				)
				r.client.metrics.ListingRequests.WithLabelValues("error").Inc()
				continue
			case err != nil:
				r.client.logger.Warn("listing incomplete, using pages already read",
					"prefix", src.Prefix,
					"date", date.Format("20060102"),
					"candidates", len(files),
					"error", err,
				)
				r.client.metrics.ListingRequests.WithLabelValues("partial").Inc()
			}
			if len(files) == 0 {
				r.client.metrics.ListingRequests.WithLabelValues("empty").Inc()
				continue
			}

			r.client.metrics.ListingRequests.WithLabelValues("match").Inc()
			sortNewestFirst(files)
			latest := files[0]
			r.client.logger.Info("resolved latest file",
				"product", src.Product,
				"file", latest.Filename,
				"date", date.Format("20060102"),
				"candidates", len(files),
			)
			return domain.Resolution{Source: src, File: latest}, nil
		}
	}

	return domain.Resolution{}, domain.ErrNoDataAvailable
}

// list returns grid files under the source's prefix for one UTC date. When a
// later page fails, the files from earlier pages are returned with the error.
func (r *Resolver) list(ctx context.Context, src domain.Source, date time.Time) ([]domain.ListedFile, error) {
	prefix := src.Prefix + date.Format("20060102") + "/"

	var files []domain.ListedFile
	marker := ""
	for page := 0; page < maxListPages; page++ {
		result, err := r.fetchPage(ctx, prefix, marker)
		if err != nil {
			return files, fmt.Errorf("list page %d: %w", page+1, err)
		}

		for _, obj := range result.Contents {
			if !isGridKey(obj.Key) {
				continue
			}
			files = append(files, domain.ListedFile{
				Filename:     path.Base(obj.Key),
				URL:          r.client.baseURL + "/" + obj.Key,
				LastModified: parseLastModified(obj.LastModified),
			})
		}

		if !result.IsTruncated {
			break
		}
		next := result.NextMarker
		if next == "" && len(result.Contents) > 0 {
			next = result.Contents[len(result.Contents)-1].Key
		}
		if next == "" || next == marker {
			break
		}
		marker = next
	}

	return files, nil
}

func (r *Resolver) fetchPage(ctx context.Context, prefix, marker string) (listBucketResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	params := url.Values{
		"prefix":   {prefix},
		"max-keys": {fmt.Sprint(maxListKeys)},
	}
	if marker != "" {
		params.Set("marker", marker)
	}

	resp, err := r.client.get(ctx, r.client.baseURL+"/?"+params.Encode())
	if err != nil {
		return listBucketResult{}, err
	}
	defer resp.Body.Close()

	var result listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return listBucketResult{}, fmt.Errorf("decode listing: %w", err)
	}
	return result, nil
}

// isGridKey keeps compressed and uncompressed GRIB2 files.
func isGridKey(key string) bool {
	return strings.HasSuffix(key, ".grib2.gz") || strings.HasSuffix(key, ".grib2")
}

var lastModifiedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// parseLastModified returns the zero time when s is absent or malformed.
func parseLastModified(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range lastModifiedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// sortNewestFirst orders by LastModified descending. Missing timestamps (zero)
// sort last; ties keep listing order.
func sortNewestFirst(files []domain.ListedFile) {
	slices.SortStableFunc(files, func(a, b domain.ListedFile) int {
		return b.LastModified.Compare(a.LastModified)
	})
}

// S3 ListObjects (v1) response.

type listBucketResult struct {
	IsTruncated bool        `xml:"IsTruncated"`
	NextMarker  string      `xml:"NextMarker"`
	Contents    []listEntry `xml:"Contents"`
}

type listEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
}
