package domain

import "time"

// Source is one MRMS product stream in the upstream bucket.
type Source struct {
	Prefix  string // bucket key prefix, ending in "/"
	Product string // human-readable product label used in collection metadata
}

// DefaultSources returns the reflectivity products in failover priority order.
func DefaultSources() []Source {
	return []Source{
		{Prefix: "CONUS/MergedReflectivityAtLowestAltitude_00.50/", Product: "MRMS Reflectivity at Lowest Altitude"},
		{Prefix: "CONUS/MergedReflectivityQCComposite_00.50/", Product: "MRMS Merged Reflectivity QC Composite"},
		{Prefix: "CONUS/MergedBaseReflectivity_00.50/", Product: "MRMS Merged Base Reflectivity"},
	}
}

// ListedFile is one candidate entry from a bucket listing.
// A zero LastModified means the listing did not report one.
type ListedFile struct {
	Filename     string
	URL          string
	LastModified time.Time
}

// Resolution is the newest file found and the source it came from.
type Resolution struct {
	Source Source
	File   ListedFile
}
