package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	"echo-viewer/internal/mediatypes"
)

// Encoding parameters.
const (
	FullJPEGQuality      = 90
	ThumbnailJPEGQuality = 85
	MaxRequestDimension  = 16384
)

// Encoded is an image ready to send.
type Encoded struct {
	Data        []byte
	ContentType string
}

// EncodeForTransport encodes a full view of an image decoded from name:
// PNG for formats that may carry transparency, JPEG otherwise.
func EncodeForTransport(img image.Image, name string) (Encoded, error) {
	var buf bytes.Buffer
	if mediatypes.MayHaveAlpha(name) {
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return Encoded{}, err
		}
		return Encoded{Data: buf.Bytes(), ContentType: "image/png"}, nil
	}

	if err := jpeg.Encode(&buf, Flatten(img), &jpeg.Options{Quality: FullJPEGQuality}); err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
}

// EncodeJPEG flattens img onto white and encodes it as JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Flatten composites img over an opaque white background. Opaque images
// are returned unchanged.
func Flatten(img image.Image) image.Image {
	if isOpaque(img) {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// ScaleToRequest resizes img for a full-view request. Both dimensions fit
// the image inside the box; one dimension scales to it, preserving aspect
// ratio. Requests larger than the source are clamped to it, so the result
// is never bigger than img. Zero values mean "not requested".
func ScaleToRequest(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	width = min(max(width, 0), MaxRequestDimension, b.Dx())
	height = min(max(height, 0), MaxRequestDimension, b.Dy())

	switch {
	case width > 0 && height > 0:
		return imaging.Fit(img, width, height, imaging.Lanczos)
	case width > 0 && width < b.Dx():
		return imaging.Resize(img, width, 0, imaging.Lanczos)
	case height > 0 && height < b.Dy():
		return imaging.Resize(img, 0, height, imaging.Lanczos)
	}
	return img
}
