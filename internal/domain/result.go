package domain

// Origin says where a served collection came from.
type Origin string

const (
	OriginCache    Origin = "cache"    // fresh cache hit, no upstream traffic
	OriginUpstream Origin = "upstream" // produced by this pipeline run
	OriginStale    Origin = "stale"    // pipeline failed, served an expired cache entry
)

// LatestResult is the outcome of one request for the latest collection.
// Found is false when the pipeline failed and nothing was cached; Cause holds
// the pipeline failure for stale and absent results.
type LatestResult struct {
	Collection FeatureCollection
	Found      bool
	Origin     Origin
	Cause      error
}

// CacheStatus describes the cache slot. AgeSeconds is nil when no entry exists.
type CacheStatus struct {
	AgeSeconds *float64 `json:"cache_age_seconds"`
	Fresh      bool     `json:"cache_fresh"`
}
