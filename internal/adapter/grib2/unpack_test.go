package grib2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		nbits int
		count int
		want  []uint32
	}{
		{"12-bit", []byte{0xAB, 0xCD, 0xEF}, 12, 2, []uint32{0xABC, 0xDEF}},
		{"3-bit", []byte{0b10101100}, 3, 2, []uint32{5, 3}},
		{"byte aligned", []byte{0x01, 0xFF}, 8, 2, []uint32{1, 255}},
		{"24-bit", []byte{0x12, 0x34, 0x56}, 24, 1, []uint32{0x123456}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readBits(tt.data, tt.nbits, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBits_ShortData(t *testing.T) {
	_, err := readBits([]byte{0xFF}, 12, 1)
	assert.Error(t, err)
}

func TestSignMagnitude(t *testing.T) {
	assert.Equal(t, int16(-1), smInt16([]byte{0x80, 0x01}))
	assert.Equal(t, int16(3), smInt16([]byte{0x00, 0x03}))
	assert.Equal(t, int32(-5), smInt32([]byte{0x80, 0x00, 0x00, 0x05}))
	assert.Equal(t, int32(54995000), smInt32([]byte{0x03, 0x47, 0x28, 0x38}))
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{260, -100},
		{299.995, -60.005},
		{180, -180},
		{-180, -180},
		{359.5, -0.5},
		{0, 0},
		{-97.5, -97.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, normalizeLongitude(tt.in), 1e-9, "lon %v", tt.in)
	}
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "refc", shortName(0, 16, 5))
	assert.Equal(t, "tp", shortName(0, 1, 8))
	assert.Equal(t, "unknown", shortName(209, 9, 0))
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func grayRow(values ...uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(values), 1))
	for x, v := range values {
		img.SetGray(x, 0, color.Gray{Y: v})
	}
	return img
}

func pngChunk(typ string, body []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(body)))
	out = append(out, typ...)
	out = append(out, body...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(append([]byte(typ), body...)))
}

// subBytePNG builds a one-row grayscale PNG at the given bit depth.
func subBytePNG(t *testing.T, depth int, values ...uint8) []byte {
	t.Helper()
	row := []byte{0} // filter: none
	var acc, nacc int
	for _, v := range values {
		acc = acc<<depth | int(v)
		nacc += depth
		if nacc == 8 {
			row = append(row, byte(acc))
			acc, nacc = 0, 0
		}
	}
	if nacc > 0 {
		row = append(row, byte(acc<<(8-nacc)))
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(row)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ihdr := binary.BigEndian.AppendUint32(nil, uint32(len(values)))
	ihdr = binary.BigEndian.AppendUint32(ihdr, 1)
	ihdr = append(ihdr, byte(depth), 0, 0, 0, 0)

	out := []byte("\x89PNG\r\n\x1a\n")
	out = append(out, pngChunk("IHDR", ihdr)...)
	out = append(out, pngChunk("IDAT", z.Bytes())...)
	return append(out, pngChunk("IEND", nil)...)
}

func TestDecodePNG_EightBitGrayHoldsRawValuesForNarrowWidths(t *testing.T) {
	for nbits := 1; nbits <= 7; nbits++ {
		t.Run(fmt.Sprintf("%d-bit", nbits), func(t *testing.T) {
			top := uint8(1<<nbits - 1)
			data := pngBytes(t, grayRow(0, 1, top/2, top))

			got, err := decodePNG(data, nbits, 4)
			require.NoError(t, err)
			assert.Equal(t, []uint32{0, 1, uint32(top / 2), uint32(top)}, got)
		})
	}
}

func TestDecodePNG_EightBitGrayWithFourBitValues(t *testing.T) {
	got, err := decodePNG(pngBytes(t, grayRow(1, 7, 12, 15)), 4, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 7, 12, 15}, got)
}

func TestDecodePNG_SubByteDepthIsRescaled(t *testing.T) {
	tests := []struct {
		depth  int
		values []uint8
	}{
		{1, []uint8{1, 0, 1, 1}},
		{2, []uint8{0, 1, 2, 3}},
		{4, []uint8{1, 7, 12, 15}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.depth), func(t *testing.T) {
			got, err := decodePNG(subBytePNG(t, tt.depth, tt.values...), tt.depth, len(tt.values))
			require.NoError(t, err)

			want := make([]uint32, len(tt.values))
			for k, v := range tt.values {
				want[k] = uint32(v)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodePNG_RGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0x01, G: 0x02, B: 0x03, A: 0xff})
	img.SetRGBA(1, 0, color.RGBA{R: 0xab, G: 0xcd, B: 0xef, A: 0xff})

	got, err := decodePNG(pngBytes(t, img), 24, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x010203, 0xabcdef}, got)
}

func TestDecodePNG_RGBAUsesAlphaAsLowByte(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0x78})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0x00, G: 0x00, B: 0x01, A: 0x02})

	got, err := decodePNG(pngBytes(t, img), 32, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x12345678, 0x00000102}, got)
}

func TestDecodePNG_CountMismatch(t *testing.T) {
	_, err := decodePNG(pngBytes(t, grayRow(1, 2, 3)), 8, 4)
	require.Error(t, err)
}
