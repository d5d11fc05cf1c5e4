package domain

import (
	"errors"
	"fmt"
	"math"
)

// maxFeatureErrors caps per-feature problems reported by Validate.
const maxFeatureErrors = 10

// Validate checks the collection invariants: GeoJSON type, metadata count,
// coordinate ranges, threshold and one-decimal rounding. All problems are
// joined into the returned error.
func (fc FeatureCollection) Validate(minReflectivity float64) error {
	var errs []error

	if fc.Type != "FeatureCollection" {
		errs = append(errs, fmt.Errorf("type is %q, want FeatureCollection", fc.Type))
	}
	if fc.Metadata.Count != len(fc.Features) {
		errs = append(errs, fmt.Errorf("metadata count %d != %d features", fc.Metadata.Count, len(fc.Features)))
	}
	if fc.Metadata.Product == "" {
		errs = append(errs, errors.New("metadata product is empty"))
	}

	bad := 0
	for i, f := range fc.Features {
		if err := f.check(minReflectivity); err != nil {
			bad++
			if bad <= maxFeatureErrors {
				errs = append(errs, fmt.Errorf("feature %d: %w", i, err))
			}
		}
	}
	if bad > maxFeatureErrors {
		errs = append(errs, fmt.Errorf("%d more invalid features", bad-maxFeatureErrors))
	}

	return errors.Join(errs...)
}

func (f GeoFeature) check(minReflectivity float64) error {
	switch {
	case f.Longitude < -180 || f.Longitude > 180:
		return fmt.Errorf("longitude %v out of range", f.Longitude)
	case f.Latitude < -90 || f.Latitude > 90:
		return fmt.Errorf("latitude %v out of range", f.Latitude)
	case math.IsNaN(f.Reflectivity):
		return errors.New("reflectivity is NaN")
	case f.Reflectivity < minReflectivity:
		return fmt.Errorf("reflectivity %v below threshold %v", f.Reflectivity, minReflectivity)
	case math.Abs(f.Reflectivity*10-math.Round(f.Reflectivity*10)) > 1e-6:
		return fmt.Errorf("reflectivity %v not rounded to one decimal", f.Reflectivity)
	}
	return nil
}
