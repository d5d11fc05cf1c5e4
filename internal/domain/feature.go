package domain

import (
	"encoding/json"
	"fmt"
)

// GeoFeature is a single reflectivity sample at a point.
// It serializes as a GeoJSON Point feature.
type GeoFeature struct {
	Longitude    float64
	Latitude     float64
	Reflectivity float64
}

// Metadata summarizes a FeatureCollection.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
	Product   string `json:"product"`
}

// FeatureCollection is the unit of caching and of API responses.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Features []GeoFeature `json:"features"`
	Metadata Metadata     `json:"metadata"`
}

// NewFeatureCollection builds a collection whose metadata count matches features.
func NewFeatureCollection(features []GeoFeature, timestamp, product string) FeatureCollection {
	if features == nil {
		features = []GeoFeature{}
	}
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Metadata: Metadata{
			Timestamp: timestamp,
			Count:     len(features),
			Product:   product,
		},
	}
}

// GeoJSON wire types.

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Geometry   geoJSONPoint      `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type geoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

type featureProperties struct {
	Reflectivity float64 `json:"reflectivity"`
}

func (f GeoFeature) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSONFeature{
		Type: "Feature",
		Geometry: geoJSONPoint{
			Type:        "Point",
			Coordinates: [2]float64{f.Longitude, f.Latitude},
		},
		Properties: featureProperties{Reflectivity: f.Reflectivity},
	})
}

func (f *GeoFeature) UnmarshalJSON(data []byte) error {
	var wire geoJSONFeature
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Geometry.Type != "" && wire.Geometry.Type != "Point" {
		return fmt.Errorf("unsupported geometry type %q", wire.Geometry.Type)
	}
	f.Longitude = wire.Geometry.Coordinates[0]
	f.Latitude = wire.Geometry.Coordinates[1]
	f.Reflectivity = wire.Properties.Reflectivity
	return nil
}
