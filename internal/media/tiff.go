package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// TIFF tags used to locate embedded previews and orientation.
const (
	tagNewSubfileType     = 0x00FE
	tagImageWidth         = 0x0100
	tagImageLength        = 0x0101
	tagCompression        = 0x0103
	tagStripOffsets       = 0x0111
	tagOrientation        = 0x0112
	tagStripByteCounts    = 0x0117
	tagSubIFDs            = 0x014A
	tagJPEGInterchange    = 0x0201
	tagJPEGInterchangeLen = 0x0202
	tagExifIFD            = 0x8769
)

const (
	compressionOldJPEG = 6
	compressionJPEG    = 7

	tiffTypeShort = 3
	tiffTypeLong  = 4
	tiffTypeIFD   = 13

	tiffHeaderLen    = 8
	tiffEntryLen     = 12
	maxIFDs          = 32
	maxEntriesPerIFD = 1024
	maxPreviewBytes  = 64 << 20

	orientationNormal = 1
	orientationMax    = 8
)

var errNotTIFF = errors.New("not a TIFF container")

// tiffMagics are the header magic numbers of TIFF and the TIFF-derived
// vendor containers (Olympus ORF uses "RO"/"RS", Panasonic RW2 uses 0x55).
var tiffMagics = map[uint16]bool{42: true, 0x4F52: true, 0x5352: true, 0x55: true}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	raw   [4]byte
}

type tiffReader struct {
	r     io.ReaderAt
	size  int64
	order binary.ByteOrder
}

func newTIFFReader(r io.ReaderAt, size int64) (*tiffReader, uint32, error) {
	var hdr [tiffHeaderLen]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, 0, errNotTIFF
	}
	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, errNotTIFF
	}
	if !tiffMagics[order.Uint16(hdr[2:4])] {
		return nil, 0, errNotTIFF
	}
	return &tiffReader{r: r, size: size, order: order}, order.Uint32(hdr[4:8]), nil
}

// readIFD returns the entries at off and the offset of the next IFD.
func (t *tiffReader) readIFD(off uint32) ([]tiffEntry, uint32, error) {
	if int64(off)+2 > t.size {
		return nil, 0, fmt.Errorf("IFD offset %d out of range", off)
	}
	var cnt [2]byte
	if _, err := t.r.ReadAt(cnt[:], int64(off)); err != nil {
		return nil, 0, err
	}
	n := int(t.order.Uint16(cnt[:]))
	if n > maxEntriesPerIFD {
		return nil, 0, fmt.Errorf("IFD has %d entries", n)
	}

	buf := make([]byte, n*tiffEntryLen+4)
	if _, err := t.r.ReadAt(buf, int64(off)+2); err != nil {
		return nil, 0, err
	}
	entries := make([]tiffEntry, n)
	for i := range entries {
		b := buf[i*tiffEntryLen:]
		entries[i] = tiffEntry{
			tag:   t.order.Uint16(b[0:2]),
			typ:   t.order.Uint16(b[2:4]),
			count: t.order.Uint32(b[4:8]),
		}
		copy(entries[i].raw[:], b[8:12])
	}
	return entries, t.order.Uint32(buf[n*tiffEntryLen:]), nil
}

// uint returns the first value of a SHORT or LONG entry.
func (t *tiffReader) uint(e tiffEntry) uint32 {
	if e.typ == tiffTypeShort {
		return uint32(t.order.Uint16(e.raw[:2]))
	}
	return t.order.Uint32(e.raw[:])
}

// uints returns every value of a SHORT, LONG or IFD entry.
func (t *tiffReader) uints(e tiffEntry) ([]uint32, error) {
	width := 4
	if e.typ == tiffTypeShort {
		width = 2
	} else if e.typ != tiffTypeLong && e.typ != tiffTypeIFD {
		return nil, fmt.Errorf("tag %#x has type %d", e.tag, e.typ)
	}
	if e.count == 0 || e.count > maxIFDs {
		return nil, fmt.Errorf("tag %#x has %d values", e.tag, e.count)
	}

	data := e.raw[:]
	if total := int(e.count) * width; total > 4 {
		data = make([]byte, total)
		if _, err := t.r.ReadAt(data, int64(t.order.Uint32(e.raw[:]))); err != nil {
			return nil, err
		}
	}

	out := make([]uint32, e.count)
	for i := range out {
		if width == 2 {
			out[i] = uint32(t.order.Uint16(data[i*2:]))
		} else {
			out[i] = t.order.Uint32(data[i*4:])
		}
	}
	return out, nil
}

// tiffOrientation returns the orientation tag of IFD0, or 1.
func tiffOrientation(r io.ReaderAt, size int64) int {
	t, off, err := newTIFFReader(r, size)
	if err != nil {
		return orientationNormal
	}
	entries, _, err := t.readIFD(off)
	if err != nil {
		return orientationNormal
	}
	for _, e := range entries {
		if e.tag == tagOrientation {
			if o := int(t.uint(e)); o >= orientationNormal && o <= orientationMax {
				return o
			}
		}
	}
	return orientationNormal
}
