package domain

import "math"

const (
	// DefaultStride is the row/column step used when downsampling a grid.
	DefaultStride = 10

	// DefaultMinReflectivity is the inclusion threshold in dBZ.
	DefaultMinReflectivity = 15.0

	// MissingBelow marks missing or invalid samples (MRMS uses -999 and -99).
	MissingBelow = -90.0
)

// Projector downsamples a RawGrid into a FeatureCollection.
// Stride and MinReflectivity trade output size against fidelity.
type Projector struct {
	Stride          int
	MinReflectivity float64
}

// DefaultProjector returns a Projector with the standard stride and threshold.
func DefaultProjector() Projector {
	return Projector{Stride: DefaultStride, MinReflectivity: DefaultMinReflectivity}
}

// Project visits every Stride-th cell on both axes and emits a feature for each
// valid sample at or above MinReflectivity. It does not validate grid shape.
func (p Projector) Project(grid RawGrid, product string) FeatureCollection {
	stride := p.Stride
	if stride <= 0 {
		stride = DefaultStride
	}

	features := make([]GeoFeature, 0)
	for i := 0; i < len(grid.Latitudes); i += stride {
		row := grid.Values[i]
		for j := 0; j < len(grid.Longitudes); j += stride {
			v := float64(row[j])
			if !p.includes(v) {
				continue
			}
			features = append(features, GeoFeature{
				Longitude:    grid.Longitudes[j],
				Latitude:     grid.Latitudes[i],
				Reflectivity: roundTenth(v),
			})
		}
	}

	return NewFeatureCollection(features, grid.Timestamp, product)
}

func (p Projector) includes(v float64) bool {
	if math.IsNaN(v) || v < MissingBelow {
		return false
	}
	return v >= p.MinReflectivity
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
