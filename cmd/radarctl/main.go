// Command radarctl runs the radar pipeline and its pieces from the shell.
//
// Usage:
//
//	radarctl fetch --sample 10
//	radarctl decode MRMS_MergedReflectivityAtLowestAltitude.grib2 --out radar.json
//	radarctl validate radar.json
//	radarctl info
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
