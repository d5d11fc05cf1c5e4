package domain

// RawGrid is a decoded 2-D scalar field with its coordinate axes.
// Values is indexed [lat][lon]; callers must keep
// len(Values) == len(Latitudes) and len(Values[i]) == len(Longitudes).
type RawGrid struct {
	Latitudes  []float64
	Longitudes []float64
	Values     [][]float32
	Timestamp  string
	Variable   string
}
