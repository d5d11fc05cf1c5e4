package grib2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Scanning mode flags (code table 3.4).
const (
	scanINegative     = 0x80
	scanJConsecutive  = 0x20
	scanBoustrophedon = 0x10
)

// maxGridPoints rejects headers that would allocate absurd grids.
const maxGridPoints = 1 << 27

// gridDef is a regular lat/lon grid with coordinates in file scan order.
type gridDef struct {
	ni, nj       int
	lats         []float64 // len nj
	lons         []float64 // len ni, normalized to [-180, 180)
	jConsecutive bool
}

func (g gridDef) points() int { return g.ni * g.nj }

// parseGrid decodes a section 3 with grid definition template 3.0.
func parseGrid(sec []byte) (gridDef, error) {
	if len(sec) < 14 {
		return gridDef{}, errors.New("grid definition section too short")
	}
	if tmpl := binary.BigEndian.Uint16(sec[12:14]); tmpl != 0 {
		return gridDef{}, fmt.Errorf("unsupported grid template 3.%d", tmpl)
	}
	if len(sec) < 72 {
		return gridDef{}, fmt.Errorf("grid template 3.0 needs 72 bytes, got %d", len(sec))
	}

	npoints := binary.BigEndian.Uint32(sec[6:10])
	ni := binary.BigEndian.Uint32(sec[30:34])
	nj := binary.BigEndian.Uint32(sec[34:38])
	if ni == 0 || nj == 0 {
		return gridDef{}, fmt.Errorf("empty grid %dx%d", ni, nj)
	}
	if uint64(ni)*uint64(nj) != uint64(npoints) {
		return gridDef{}, fmt.Errorf("grid %dx%d does not match %d points", ni, nj, npoints)
	}
	if npoints > maxGridPoints {
		return gridDef{}, fmt.Errorf("grid of %d points too large", npoints)
	}

	scan := sec[71]
	if scan&scanBoustrophedon != 0 {
		return gridDef{}, errors.New("boustrophedon scanning not supported")
	}

	toDegrees := angleConverter(binary.BigEndian.Uint32(sec[38:42]), binary.BigEndian.Uint32(sec[42:46]))
	la1 := toDegrees(smInt32(sec[46:50]))
	lo1 := toDegrees(smInt32(sec[50:54]))
	la2 := toDegrees(smInt32(sec[55:59]))
	lo2 := toDegrees(smInt32(sec[59:63]))

	// Keep the longitude span in the scan direction when it crosses 0°.
	if scan&scanINegative == 0 && lo2 < lo1 {
		lo2 += 360
	} else if scan&scanINegative != 0 && lo2 > lo1 {
		lo2 -= 360
	}

	lats := linspace(la1, la2, int(nj))
	lons := linspace(lo1, lo2, int(ni))
	for i, lon := range lons {
		lons[i] = normalizeLongitude(lon)
	}

	return gridDef{
		ni:           int(ni),
		nj:           int(nj),
		lats:         lats,
		lons:         lons,
		jConsecutive: scan&scanJConsecutive != 0,
	}, nil
}

// angleConverter maps stored angles to degrees. A missing or zero basic
// angle means microdegrees.
func angleConverter(basic, subdivisions uint32) func(int32) float64 {
	if basic == 0 || basic == math.MaxUint32 || subdivisions == 0 || subdivisions == math.MaxUint32 {
		return func(v int32) float64 { return float64(v) / 1e6 }
	}
	return func(v int32) float64 { return float64(v) * float64(basic) / float64(subdivisions) }
}

func linspace(first, last float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = first
		return out
	}
	step := (last - first) / float64(n-1)
	for k := range out {
		out[k] = first + step*float64(k)
	}
	out[n-1] = last
	return out
}

// normalizeLongitude maps any longitude into [-180, 180) and rounds away
// float noise below a microdegree.
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return math.Round((lon-180)*1e6) / 1e6
}
