package grib2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	magic     = []byte("GRIB")
	endMarker = []byte("7777")
)

const indicatorLen = 16

// field is one data field: a section 7 together with the sections in effect
// when it was read.
type field struct {
	discipline uint8
	refTime    time.Time // zero when section 1 holds an invalid date
	category   uint8
	number     uint8
	grid       gridDef
	rep        dataRep
	bitmap     []byte // nil when every point carries a value
	data       []byte
}

func (f field) name() string {
	return shortName(f.discipline, f.category, f.number)
}

// parseFile extracts every decodable field from data. Problems with individual
// messages or fields are returned alongside the fields that did parse.
func parseFile(data []byte) ([]field, []error) {
	var (
		fields []field
		errs   []error
	)

	pos := 0
	for {
		idx := bytes.Index(data[pos:], magic)
		if idx < 0 {
			break
		}
		start := pos + idx
		n, err := messageLength(data[start:])
		if err != nil {
			errs = append(errs, fmt.Errorf("message at offset %d: %w", start, err))
			pos = start + len(magic)
			continue
		}

		got, msgErrs := parseMessage(data[start : start+n])
		fields = append(fields, got...)
		for _, e := range msgErrs {
			errs = append(errs, fmt.Errorf("message at offset %d: %w", start, e))
		}
		pos = start + n
	}

	return fields, errs
}

// messageLength validates section 0 and returns the total message length.
func messageLength(b []byte) (int, error) {
	if len(b) < indicatorLen {
		return 0, errors.New("truncated indicator section")
	}
	if edition := b[7]; edition != 2 {
		return 0, fmt.Errorf("unsupported edition %d", edition)
	}
	total := binary.BigEndian.Uint64(b[8:16])
	if total < indicatorLen+uint64(len(endMarker)) || total > uint64(len(b)) {
		return 0, fmt.Errorf("message length %d exceeds available %d bytes", total, len(b))
	}
	if !bytes.Equal(b[total-4:total], endMarker) {
		return 0, errors.New("missing end section")
	}
	return int(total), nil
}

// parseMessage walks sections 1 to 7 of one message. Sections 2 to 7 may
// repeat; each section 7 closes a field.
func parseMessage(msg []byte) ([]field, []error) {
	var (
		fields []field
		errs   []error

		cur     = field{discipline: msg[6]}
		gridErr = errors.New("no grid definition")
		prodErr = errors.New("no product definition")
		repErr  = errors.New("no data representation")
		bmErr   error
		prevBM  []byte
		nfield  int
	)

	end := len(msg) - len(endMarker)
	off := indicatorLen
	for off < end {
		if end-off < 5 {
			errs = append(errs, fmt.Errorf("truncated section header at offset %d", off))
			break
		}
		secLen := int(binary.BigEndian.Uint32(msg[off : off+4]))
		num := msg[off+4]
		if secLen < 5 || secLen > end-off {
			errs = append(errs, fmt.Errorf("section %d at offset %d: bad length %d", num, off, secLen))
			break
		}
		sec := msg[off : off+secLen]
		off += secLen

		switch num {
		case 1:
			cur.refTime = parseReferenceTime(sec)
		case 2:
			// local use
		case 3:
			cur.grid, gridErr = parseGrid(sec)
		case 4:
			cur.category, cur.number, prodErr = parseProduct(sec)
		case 5:
			cur.rep, repErr = parseDataRep(sec)
		case 6:
			cur.bitmap, bmErr = parseBitmap(sec, prevBM)
			if bmErr == nil && cur.bitmap != nil {
				prevBM = cur.bitmap
			}
		case 7:
			nfield++
			if err := errors.Join(gridErr, prodErr, repErr, bmErr); err != nil {
				errs = append(errs, fmt.Errorf("field %d skipped: %w", nfield, err))
				continue
			}
			f := cur
			f.data = sec[5:]
			fields = append(fields, f)
		default:
			errs = append(errs, fmt.Errorf("unknown section %d at offset %d", num, off-secLen))
			return fields, errs
		}
	}

	return fields, errs
}

// parseReferenceTime reads the section 1 reference time, or zero if invalid.
func parseReferenceTime(sec []byte) time.Time {
	if len(sec) < 21 {
		return time.Time{}
	}
	year := int(binary.BigEndian.Uint16(sec[12:14]))
	month, day := int(sec[14]), int(sec[15])
	hour, minute, second := int(sec[16]), int(sec[17]), int(sec[18])
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}
	}
	return t
}

func parseProduct(sec []byte) (category, number uint8, err error) {
	if len(sec) < 11 {
		return 0, 0, fmt.Errorf("product definition section too short (%d bytes)", len(sec))
	}
	return sec[9], sec[10], nil
}

// parseBitmap returns the bitmap bytes, prev for indicator 254, or nil for 255.
func parseBitmap(sec, prev []byte) ([]byte, error) {
	if len(sec) < 6 {
		return nil, errors.New("bitmap section too short")
	}
	switch ind := sec[5]; ind {
	case 0:
		return sec[6:], nil
	case 254:
		if prev == nil {
			return nil, errors.New("bitmap refers to a previous bitmap that does not exist")
		}
		return prev, nil
	case 255:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported predefined bitmap %d", ind)
	}
}

// smInt32 decodes a GRIB sign-magnitude 32-bit integer.
func smInt32(b []byte) int32 {
	v := binary.BigEndian.Uint32(b)
	n := int32(v & 0x7fffffff)
	if v&0x80000000 != 0 {
		return -n
	}
	return n
}

// smInt16 decodes a GRIB sign-magnitude 16-bit integer.
func smInt16(b []byte) int16 {
	v := binary.BigEndian.Uint16(b)
	n := int16(v & 0x7fff)
	if v&0x8000 != 0 {
		return -n
	}
	return n
}
