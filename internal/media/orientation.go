package media

import (
	"bytes"
	"encoding/binary"
	"image"

	"github.com/disintegration/imaging"
)

// jpegExifOrientation returns the EXIF orientation of a JPEG, or 1.
func jpegExifOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return orientationNormal
	}

	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return orientationNormal
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF: // fill byte
			i++
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8):
			i += 2
			continue
		case marker == 0xDA || marker == 0xD9:
			return orientationNormal
		}

		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + segLen
		if segLen < 2 || end > len(data) {
			return orientationNormal
		}
		if marker == 0xE1 && segLen >= 8 && bytes.HasPrefix(data[i+4:end], []byte("Exif\x00\x00")) {
			payload := data[i+10 : end]
			return tiffOrientation(bytes.NewReader(payload), int64(len(payload)))
		}
		i = end
	}
	return orientationNormal
}

// applyOrientation returns img transformed so that an image tagged with
// EXIF orientation o displays upright.
func applyOrientation(img image.Image, o int) image.Image {
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
