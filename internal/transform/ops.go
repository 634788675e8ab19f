package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"echo-viewer/internal/apperrors"
)

// OpType names an edit operation.
type OpType string

const (
	OpRotate OpType = "rotate"
	OpFlip   OpType = "flip"
	OpCrop   OpType = "crop"
	OpResize OpType = "resize"
)

// Flip directions.
const (
	FlipHorizontal = "horizontal"
	FlipVertical   = "vertical"
)

// Operation is one geometric edit. Which fields apply depends on Type:
//
//	rotate: Angle, clockwise degrees (90, -90, 180 or 270)
//	flip:   Direction ("horizontal" or "vertical")
//	crop:   X, Y, Width, Height in pixels of the current image
//	resize: Width, Height in pixels
//
// A crop Width or Height of ToEdge extends the crop to the image edge; an
// explicit size must be at least MinCropSize. A zero resize Width or Height
// is derived from the other to keep the aspect ratio.
type Operation struct {
	Type      OpType `json:"type"`
	Angle     int    `json:"angle,omitempty"`
	Direction string `json:"direction,omitempty"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// ToEdge as a crop Width or Height extends the crop to the right or bottom
// edge. It is what a crop sent without "width" or "height" decodes to.
const ToEdge = -1

// Rotate returns a clockwise rotation by angle degrees.
func Rotate(angle int) Operation { return Operation{Type: OpRotate, Angle: angle} }

// Mirror returns a flip in the given direction.
func Mirror(direction string) Operation { return Operation{Type: OpFlip, Direction: direction} }

// Crop returns a crop to the rectangle at (x, y) of size w x h.
func Crop(x, y, w, h int) Operation {
	return Operation{Type: OpCrop, X: x, Y: y, Width: w, Height: h}
}

// Resize returns a resize to w x h.
func Resize(w, h int) Operation { return Operation{Type: OpResize, Width: w, Height: h} }

func (op Operation) String() string {
	switch op.Type {
	case OpRotate:
		return fmt.Sprintf("rotate(%d)", op.Angle)
	case OpFlip:
		return "flip(" + op.Direction + ")"
	case OpCrop:
		return fmt.Sprintf("crop(%d,%d %dx%d)", op.X, op.Y, op.Width, op.Height)
	case OpResize:
		return fmt.Sprintf("resize(%dx%d)", op.Width, op.Height)
	}
	return string(op.Type)
}

// wireOp accepts the JSON clients send: fractional pixel values from a
// canvas, and "w"/"h" as aliases of "width"/"height".
type wireOp struct {
	Type      string   `json:"type"`
	Angle     *float64 `json:"angle"`
	Direction string   `json:"direction"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
	W         *float64 `json:"w"`
	H         *float64 `json:"h"`
}

// UnmarshalJSON decodes a single operation and validates its shape.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return invalid("malformed operation: %v", err)
	}

	out := Operation{Type: OpType(strings.ToLower(strings.TrimSpace(w.Type)))}
	switch out.Type {
	case OpRotate:
		if w.Angle == nil {
			return invalid("rotate requires an angle")
		}
		out.Angle = int(math.Round(*w.Angle))
	case OpFlip:
		out.Direction = strings.ToLower(w.Direction)
		if out.Direction == "" {
			out.Direction = FlipHorizontal
		}
	case OpCrop:
		out.X, out.Y = round(w.X), round(w.Y)
		out.Width, out.Height = cropSize(w.Width, w.W), cropSize(w.Height, w.H)
	case OpResize:
		out.Width, out.Height = round(pick(w.Width, w.W)), round(pick(w.Height, w.H))
	default:
		return invalid("unknown operation type %q", w.Type)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*op = out
	return nil
}

func pick(a, b *float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return 0
}

// cropSize returns ToEdge only when neither key was sent.
func cropSize(a, b *float64) int {
	if a == nil && b == nil {
		return ToEdge
	}
	return round(pick(a, b))
}

func round(f float64) int {
	return int(math.Round(f))
}

// ParseOperations decodes a JSON array of operations.
func ParseOperations(data []byte) ([]Operation, error) {
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		if apperrors.KindOf(err) == apperrors.KindInvalidOperation {
			return nil, err
		}
		return nil, invalid("malformed operations: %v", err)
	}
	return ops, nil
}

// Validate checks the parameters of op that do not depend on the image.
func (op Operation) Validate() error {
	switch op.Type {
	case OpRotate:
		switch op.Angle {
		case 90, -90, 180, 270:
			return nil
		}
		return invalid("unsupported rotation angle %d", op.Angle)
	case OpFlip:
		if op.Direction != FlipHorizontal && op.Direction != FlipVertical {
			return invalid("unknown flip direction %q", op.Direction)
		}
	case OpCrop:
		if op.X < 0 || op.Y < 0 {
			return invalid("crop position must not be negative")
		}
		for _, n := range []int{op.Width, op.Height} {
			if n != ToEdge && n < MinCropSize {
				return invalid("invalid crop dimensions %dx%d", op.Width, op.Height)
			}
		}
	case OpResize:
		if op.Width < 0 || op.Height < 0 || (op.Width == 0 && op.Height == 0) {
			return invalid("resize requires a positive width or height")
		}
		if op.Width > MaxResizeDimension || op.Height > MaxResizeDimension {
			return invalid("resize dimensions exceed %d pixels", MaxResizeDimension)
		}
	default:
		return invalid("unknown operation type %q", op.Type)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return apperrors.New(apperrors.KindInvalidOperation, "edit", "", fmt.Sprintf(format, args...))
}
