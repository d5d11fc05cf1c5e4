package grib2

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testField describes one field for the in-test GRIB2 writer.
type testField struct {
	category, number uint8

	gridTemplate       uint16
	ni, nj             uint32
	la1, lo1, la2, lo2 float64
	scan               byte

	repTemplate        uint16
	ref                float32
	binScale, decScale int16
	nbits              uint8
	packed             []uint32

	bitmap              []bool
	reusePreviousBitmap bool
}

// testMessage describes one GRIB2 message.
type testMessage struct {
	discipline uint8
	refTime    [6]int // year, month, day, hour, minute, second
	fields     []testField
}

var testRefTime = [6]int{2024, 1, 3, 14, 56, 38}

func be16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func be32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

func sm32(v int32) []byte {
	if v < 0 {
		return be32(uint32(-v) | 0x80000000)
	}
	return be32(uint32(v))
}

func sm16(v int16) []byte {
	if v < 0 {
		return be16(uint16(-v) | 0x8000)
	}
	return be16(uint16(v))
}

func micro(deg float64) int32 { return int32(math.Round(deg * 1e6)) }

func section(num byte, body ...[]byte) []byte {
	var payload []byte
	for _, b := range body {
		payload = append(payload, b...)
	}
	out := be32(uint32(5 + len(payload)))
	out = append(out, num)
	return append(out, payload...)
}

func encodeSection1(ref [6]int) []byte {
	return section(1,
		be16(161), be16(0),
		[]byte{2, 1, 1},
		be16(uint16(ref[0])),
		[]byte{byte(ref[1]), byte(ref[2]), byte(ref[3]), byte(ref[4]), byte(ref[5])},
		[]byte{0, 1},
	)
}

func encodeSection3(f testField) []byte {
	return section(3,
		[]byte{0},
		be32(f.ni*f.nj),
		[]byte{0, 0},
		be16(f.gridTemplate),
		[]byte{6},
		make([]byte, 15),
		be32(f.ni), be32(f.nj),
		be32(0), be32(math.MaxUint32),
		sm32(micro(f.la1)), sm32(micro(f.lo1)),
		[]byte{0x30},
		sm32(micro(f.la2)), sm32(micro(f.lo2)),
		be32(10000), be32(10000),
		[]byte{f.scan},
	)
}

func encodeSection4(f testField) []byte {
	return section(4,
		be16(0), be16(0),
		[]byte{f.category, f.number},
		make([]byte, 23),
	)
}

func encodeSection5(f testField) []byte {
	return section(5,
		be32(uint32(len(f.packed))),
		be16(f.repTemplate),
		be32(math.Float32bits(f.ref)),
		sm16(f.binScale), sm16(f.decScale),
		[]byte{f.nbits, 0},
	)
}

func encodeSection6(f testField) []byte {
	switch {
	case f.reusePreviousBitmap:
		return section(6, []byte{254})
	case f.bitmap == nil:
		return section(6, []byte{255})
	}
	bm := make([]byte, (len(f.bitmap)+7)/8)
	for k, set := range f.bitmap {
		if set {
			bm[k/8] |= 0x80 >> (k % 8)
		}
	}
	return section(6, []byte{0}, bm)
}

func encodeSection7(t *testing.T, f testField) []byte {
	t.Helper()
	if f.nbits == 0 {
		return section(7)
	}
	switch f.repTemplate {
	case repPNG:
		return section(7, encodePNG(t, f))
	default:
		return section(7, packBits(f.packed, int(f.nbits)))
	}
}

func packBits(values []uint32, nbits int) []byte {
	out := make([]byte, (len(values)*nbits+7)/8)
	bit := 0
	for _, v := range values {
		for k := nbits - 1; k >= 0; k-- {
			if v&(1<<k) != 0 {
				out[bit/8] |= 0x80 >> (bit % 8)
			}
			bit++
		}
	}
	return out
}

// encodePNG stores packed values as a single-row image. Widths up to 8 bits
// go into an 8-bit gray image the way GRIB2 encoders write them.
func encodePNG(t *testing.T, f testField) []byte {
	t.Helper()
	n := len(f.packed)
	var img image.Image
	switch {
	case f.nbits <= 8:
		g := image.NewGray(image.Rect(0, 0, n, 1))
		for k, v := range f.packed {
			g.Pix[k] = byte(v)
		}
		img = g
	case f.nbits == 16:
		g := image.NewGray16(image.Rect(0, 0, n, 1))
		for k, v := range f.packed {
			binary.BigEndian.PutUint16(g.Pix[2*k:], uint16(v))
		}
		img = g
	default:
		t.Fatalf("encodePNG: unsupported depth %d", f.nbits)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeMessage(t *testing.T, m testMessage) []byte {
	t.Helper()
	body := encodeSection1(m.refTime)
	for _, f := range m.fields {
		body = append(body, encodeSection3(f)...)
		body = append(body, encodeSection4(f)...)
		body = append(body, encodeSection5(f)...)
		body = append(body, encodeSection6(f)...)
		body = append(body, encodeSection7(t, f)...)
	}

	total := uint64(16 + len(body) + 4)
	out := []byte{'G', 'R', 'I', 'B', 0, 0, m.discipline, 2}
	out = binary.BigEndian.AppendUint64(out, total)
	out = append(out, body...)
	return append(out, "7777"...)
}

// writeFile stores the concatenated messages in a temp file and returns its path.
func writeFile(t *testing.T, messages ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.grib2")
	require.NoError(t, os.WriteFile(path, bytes.Join(messages, nil), 0o600))
	return path
}

// reflectivityField is a 3x2 MRMS-like field: north to south, west to east.
func reflectivityField() testField {
	return testField{
		category: 16, number: 5,
		ni: 3, nj: 2,
		la1: 50, lo1: 260, la2: 49, lo2: 262,
		repTemplate: repSimple,
		decScale:    1,
		nbits:       12,
		packed:      []uint32{100, 200, 300, 400, 500, 600},
	}
}

var fixedNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
