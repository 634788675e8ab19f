package transform

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"echo-viewer/internal/logging"
	"echo-viewer/internal/metrics"
)

// Limits on edit results.
const (
	MinCropSize        = 1
	MaxResizeDimension = 16384
)

// Apply runs ops on img in order and returns a new image. img is not
// modified. An empty ops list yields a pixel-identical copy.
func Apply(img image.Image, ops []Operation) (*image.NRGBA, error) {
	out := imaging.Clone(img)
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, err
		}
		next, err := applyOne(out, op)
		if err != nil {
			return nil, err
		}
		metrics.EditOperationsTotal.WithLabelValues(string(op.Type)).Inc()
		logging.Debug("Edit step %d: %s -> %dx%d", i+1, op, next.Bounds().Dx(), next.Bounds().Dy())
		out = next
	}
	return out, nil
}

// IsIdentity reports whether ops, taken together, leave every pixel where
// it was: an empty list, or rotations and flips that cancel out such as
// rotate(90) followed by rotate(-90). Crops and resizes never count.
func IsIdentity(ops []Operation) bool {
	tile := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range tile.Pix {
		tile.Pix[i] = uint8(i)
	}

	out := tile
	for _, op := range ops {
		if op.Type != OpRotate && op.Type != OpFlip {
			return false
		}
		if op.Validate() != nil {
			return false
		}
		next, err := applyOne(out, op)
		if err != nil {
			return false
		}
		out = next
	}
	return out.Bounds() == tile.Bounds() && bytes.Equal(out.Pix, tile.Pix)
}

func applyOne(img *image.NRGBA, op Operation) (*image.NRGBA, error) {
	switch op.Type {
	case OpRotate:
		// imaging rotates counter-clockwise.
		switch op.Angle {
		case 90:
			return imaging.Rotate270(img), nil
		case -90, 270:
			return imaging.Rotate90(img), nil
		case 180:
			return imaging.Rotate180(img), nil
		}
	case OpFlip:
		if op.Direction == FlipVertical {
			return imaging.FlipV(img), nil
		}
		return imaging.FlipH(img), nil
	case OpCrop:
		rect, err := cropRect(img.Bounds(), op)
		if err != nil {
			return nil, err
		}
		return imaging.Crop(img, rect), nil
	case OpResize:
		w, h, err := resizeDims(img.Bounds(), op)
		if err != nil {
			return nil, err
		}
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	}
	return nil, invalid("unknown operation type %q", op.Type)
}

// cropRect clamps the crop rectangle to bounds.
func cropRect(bounds image.Rectangle, op Operation) (image.Rectangle, error) {
	w, h := bounds.Dx(), bounds.Dy()
	x0, y0 := min(op.X, w), min(op.Y, h)

	cw, ch := op.Width, op.Height
	if cw == ToEdge {
		cw = w - x0
	}
	if ch == ToEdge {
		ch = h - y0
	}
	x1, y1 := min(x0+cw, w), min(y0+ch, h)

	if x1-x0 < MinCropSize || y1-y0 < MinCropSize {
		return image.Rectangle{}, invalid("crop area is empty after clamping to %dx%d", w, h)
	}
	return image.Rect(x0, y0, x1, y1).Add(bounds.Min), nil
}

// resizeDims resolves a zero dimension from the other one.
func resizeDims(bounds image.Rectangle, op Operation) (int, int, error) {
	w, h := op.Width, op.Height
	srcW, srcH := bounds.Dx(), bounds.Dy()
	switch {
	case w == 0:
		w = max(1, int(float64(srcW)*float64(h)/float64(srcH)))
	case h == 0:
		h = max(1, int(float64(srcH)*float64(w)/float64(srcW)))
	}
	if w > MaxResizeDimension || h > MaxResizeDimension {
		return 0, 0, invalid("resize dimensions exceed %d pixels", MaxResizeDimension)
	}
	return w, h, nil
}
