package grib2

type paramKey struct {
	discipline, category, number uint8
}

// shortNames covers the parameters MRMS and common NWP files use for radar
// and precipitation. MRMS local parameters (discipline 209) are not listed.
var shortNames = map[paramKey]string{
	{0, 1, 8}:  "tp",
	{0, 1, 52}: "tprate",
	{0, 15, 6}: "rdsp1",
	{0, 16, 3}: "retop",
	{0, 16, 4}: "refd",
	{0, 16, 5}: "refc",
	{0, 19, 0}: "vis",
}

func shortName(discipline, category, number uint8) string {
	if name, ok := shortNames[paramKey{discipline, category, number}]; ok {
		return name
	}
	return "unknown"
}
