// Package grib2 reads WMO GRIB edition 2 files as published by MRMS.
//
// Only what MRMS uses is supported: grid template 3.0 (regular lat/lon),
// product templates 4.x (category and number only), data representation 5.0
// (simple packing) and 5.41 (PNG packing), and section 6 bitmaps. Messages or
// fields outside that set are skipped rather than failing the whole file.
package grib2
