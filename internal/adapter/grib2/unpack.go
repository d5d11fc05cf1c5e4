package grib2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
)

// Data representation templates (code table 5.0).
const (
	repSimple = 0
	repPNG    = 41
)

// dataRep holds the section 5 packing parameters.
type dataRep struct {
	template uint16
	npacked  int
	ref      float32
	binScale int
	decScale int
	nbits    int
}

func parseDataRep(sec []byte) (dataRep, error) {
	if len(sec) < 20 {
		return dataRep{}, fmt.Errorf("data representation section too short (%d bytes)", len(sec))
	}
	tmpl := binary.BigEndian.Uint16(sec[9:11])
	if tmpl != repSimple && tmpl != repPNG {
		return dataRep{}, fmt.Errorf("unsupported data representation template 5.%d", tmpl)
	}
	rep := dataRep{
		template: tmpl,
		npacked:  int(binary.BigEndian.Uint32(sec[5:9])),
		ref:      math.Float32frombits(binary.BigEndian.Uint32(sec[11:15])),
		binScale: int(smInt16(sec[15:17])),
		decScale: int(smInt16(sec[17:19])),
		nbits:    int(sec[19]),
	}
	if rep.nbits > 32 {
		return dataRep{}, fmt.Errorf("unsupported bit width %d", rep.nbits)
	}
	return rep, nil
}

// unpack returns the field's values in scan order, one per grid point.
// Points masked out by the bitmap are NaN.
func (f field) unpack() ([]float32, error) {
	npoints := f.grid.points()
	if f.bitmap == nil && f.rep.npacked != npoints {
		return nil, fmt.Errorf("%d packed values for %d grid points", f.rep.npacked, npoints)
	}
	if f.bitmap != nil && len(f.bitmap)*8 < npoints {
		return nil, fmt.Errorf("bitmap covers %d of %d points", len(f.bitmap)*8, npoints)
	}

	packed, err := f.packedValues()
	if err != nil {
		return nil, err
	}

	binScale := math.Ldexp(1, f.rep.binScale)
	decScale := math.Pow(10, -float64(f.rep.decScale))
	ref := float64(f.rep.ref)

	out := make([]float32, npoints)
	next := 0
	for k := range out {
		if f.bitmap != nil && f.bitmap[k/8]&(0x80>>(k%8)) == 0 {
			out[k] = float32(math.NaN())
			continue
		}
		if next >= len(packed) {
			return nil, fmt.Errorf("bitmap selects more than %d packed values", len(packed))
		}
		out[k] = float32((ref + float64(packed[next])*binScale) * decScale)
		next++
	}
	if next != len(packed) {
		return nil, fmt.Errorf("bitmap selects %d of %d packed values", next, len(packed))
	}

	return out, nil
}

// packedValues returns the raw integers X from section 7.
func (f field) packedValues() ([]uint32, error) {
	n := f.rep.npacked
	if f.rep.nbits == 0 {
		// Constant field: every value equals the reference.
		return make([]uint32, n), nil
	}

	switch f.rep.template {
	case repSimple:
		return readBits(f.data, f.rep.nbits, n)
	case repPNG:
		return decodePNG(f.data, f.rep.nbits, n)
	default:
		return nil, fmt.Errorf("unsupported data representation template 5.%d", f.rep.template)
	}
}

// readBits reads count big-endian unsigned integers of width nbits.
func readBits(data []byte, nbits, count int) ([]uint32, error) {
	if need := (nbits*count + 7) / 8; len(data) < need {
		return nil, fmt.Errorf("data section has %d bytes, need %d", len(data), need)
	}

	out := make([]uint32, count)
	bit := 0
	for k := range out {
		var v uint64
		for remaining := nbits; remaining > 0; {
			b := data[bit/8]
			offset := bit % 8
			take := min(8-offset, remaining)
			chunk := (b >> (8 - offset - take)) & (1<<take - 1)
			v = v<<take | uint64(chunk)
			bit += take
			remaining -= take
		}
		out[k] = uint32(v)
	}
	return out, nil
}

// pngBitDepthOffset locates the IHDR bit depth: 8-byte signature, chunk
// length and type, then width and height.
const pngBitDepthOffset = 24

// decodePNG reads packed values from a PNG image in row-major order.
func decodePNG(data []byte, nbits, count int) ([]uint32, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	b := img.Bounds()
	if b.Dx()*b.Dy() != count {
		return nil, fmt.Errorf("png holds %d values, want %d", b.Dx()*b.Dy(), count)
	}

	out := make([]uint32, 0, count)
	switch m := img.(type) {
	case *image.Gray:
		// The decoder scales sub-byte gray depths up to 0-255. Encoders
		// usually round nbits up to 8, in which case samples are raw.
		maxV := uint32(255)
		if depth := data[pngBitDepthOffset]; depth < 8 {
			maxV = uint32(1)<<depth - 1
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out = append(out, uint32(m.GrayAt(x, y).Y)*maxV/255)
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out = append(out, uint32(m.Gray16At(x, y).Y))
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := m.RGBAAt(x, y)
				out = append(out, rgbValue(c.R, c.G, c.B, c.A, nbits))
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := m.NRGBAAt(x, y)
				out = append(out, rgbValue(c.R, c.G, c.B, c.A, nbits))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported png color model %T", img)
	}
	return out, nil
}

func rgbValue(r, g, b, a uint8, nbits int) uint32 {
	v := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if nbits > 24 {
		v = v<<8 | uint32(a)
	}
	return v
}
