// Package domain models NOAA Multi-Radar/Multi-Sensor (MRMS) reflectivity data
// and its conversion into a bounded GeoJSON point collection.
//
// # Data Source
//
// MRMS products are published to the public noaa-mrms-pds S3 bucket under
// "<region>/<product>/<YYYYMMDD>/" prefixes, one GRIB2 file every two minutes,
// usually gzip-compressed:
//
//	CONUS/MergedReflectivityAtLowestAltitude_00.50/20240101/
//	  MRMS_MergedReflectivityAtLowestAltitude_00.50_20240101-120000.grib2.gz
//
// Several reflectivity products can stand in for one another. They are tried
// as an ordered failover chain (see [DefaultSources]); the first product with
// any file in the search window wins.
//
// # Grid Conventions
//
// The CONUS grid is 7000 x 3500 points at 0.01 degree spacing, scanned north to
// south and west to east. Latitudes therefore decrease with the row index.
// Longitudes are stored 0-360 in the file and normalized to [-180, 180) here.
//
// Reflectivity is in dBZ. MRMS encodes "no coverage" as -999 and "no echo" as
// -99; anything below [MissingBelow] is treated as missing. Values under the
// projector's threshold (15 dBZ by default) are mostly clutter and very light
// precipitation and are dropped to keep the payload small.
//
// # Downsampling
//
// A full grid is ~24.5M cells. [Projector] visits every Stride-th row and
// column (10 by default), so the collection holds at most
// ceil(rows/10) * ceil(cols/10) features before thresholding.
//
// # Variable Names
//
// GRIB2 carries parameter codes, not names. The decoder maps the few codes it
// knows to short names ("refc", "refd") and everything else, including the
// MRMS local discipline 209, to "unknown". [SelectVariable] picks a field by
// keyword over those names.
package domain
