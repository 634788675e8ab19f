package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"

	"echo-viewer/internal/filesystem"
)

var errPreviewTooSmall = errors.New("embedded preview too small")

// rawPreview is an embedded JPEG located inside a RAW container.
type rawPreview struct {
	offset int64
	length int64
	width  int
	height int
}

func (p rawPreview) longEdge() int {
	return max(p.width, p.height)
}

// findRawPreview walks IFD0, its chained IFDs and any SubIFDs of a
// TIFF-based RAW file (CR2, NEF, ARW, DNG, ORF, RW2, PEF, SRW) and returns
// the largest baseline JPEG it finds, together with the IFD0 orientation.
func findRawPreview(r io.ReaderAt, size int64) (rawPreview, int, error) {
	t, first, err := newTIFFReader(r, size)
	if err != nil {
		return rawPreview{}, orientationNormal, err
	}

	var (
		best        rawPreview
		orientation = orientationNormal
		queue       = []uint32{first}
		seen        = map[uint32]bool{}
	)

	for len(queue) > 0 && len(seen) < maxIFDs {
		off := queue[0]
		queue = queue[1:]
		if off == 0 || seen[off] {
			continue
		}
		seen[off] = true

		entries, next, err := t.readIFD(off)
		if err != nil {
			continue
		}
		queue = append(queue, next)

		tags := make(map[uint16]tiffEntry, len(entries))
		for _, e := range entries {
			tags[e.tag] = e
		}

		if off == first {
			if e, ok := tags[tagOrientation]; ok {
				if o := int(t.uint(e)); o >= orientationNormal && o <= orientationMax {
					orientation = o
				}
			}
		}
		for _, tag := range []uint16{tagSubIFDs, tagExifIFD} {
			if e, ok := tags[tag]; ok {
				if offs, err := t.uints(e); err == nil {
					queue = append(queue, offs...)
				}
			}
		}

		for _, c := range previewCandidates(t, tags) {
			if p, ok := inspectJPEG(r, size, c[0], c[1]); ok && p.width*p.height > best.width*best.height {
				best = p
			}
		}
	}

	if best.length == 0 {
		return rawPreview{}, orientation, errors.New("no embedded JPEG preview")
	}
	return best, orientation, nil
}

// previewCandidates returns (offset, length) pairs that may hold a JPEG.
func previewCandidates(t *tiffReader, tags map[uint16]tiffEntry) [][2]int64 {
	var out [][2]int64

	if off, ok := tags[tagJPEGInterchange]; ok {
		if n, ok := tags[tagJPEGInterchangeLen]; ok {
			out = append(out, [2]int64{int64(t.uint(off)), int64(t.uint(n))})
		}
	}

	if c, ok := tags[tagCompression]; ok {
		comp := t.uint(c)
		if comp == compressionJPEG || comp == compressionOldJPEG {
			offs, err1 := t.uints(tags[tagStripOffsets])
			lens, err2 := t.uints(tags[tagStripByteCounts])
			if err1 == nil && err2 == nil && len(offs) == 1 && len(lens) == 1 {
				out = append(out, [2]int64{int64(offs[0]), int64(lens[0])})
			}
		}
	}
	return out
}

// inspectJPEG checks that [off, off+n) holds a decodable baseline or
// progressive JPEG and reads its dimensions.
func inspectJPEG(r io.ReaderAt, size, off, n int64) (rawPreview, bool) {
	if off <= 0 || n < 4 || n > maxPreviewBytes || off+n > size {
		return rawPreview{}, false
	}
	var soi [2]byte
	if _, err := r.ReadAt(soi[:], off); err != nil || soi[0] != 0xFF || soi[1] != 0xD8 {
		return rawPreview{}, false
	}
	cfg, err := jpeg.DecodeConfig(io.NewSectionReader(r, off, n))
	if err != nil {
		// Lossless JPEG sensor data lands here.
		return rawPreview{}, false
	}
	return rawPreview{offset: off, length: n, width: cfg.Width, height: cfg.Height}, true
}

// decodeRawPreview decodes the embedded preview of path when its long edge
// is at least minEdge, with orientation applied.
func decodeRawPreview(path string, minEdge int, retry filesystem.RetryConfig) (image.Image, int, error) {
	f, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}

	p, rawOrientation, err := findRawPreview(f, info.Size())
	if err != nil {
		return nil, 0, err
	}
	if p.longEdge() < minEdge {
		return nil, 0, fmt.Errorf("%w: %dx%d", errPreviewTooSmall, p.width, p.height)
	}

	data := make([]byte, p.length)
	if _, err := f.ReadAt(data, p.offset); err != nil {
		return nil, 0, err
	}

	// A preview carrying its own EXIF orientation wins over IFD0.
	orientation := jpegExifOrientation(data)
	if orientation == orientationNormal {
		orientation = rawOrientation
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	return applyOrientation(img, orientation), orientation, nil
}
