package transform

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"echo-viewer/internal/apperrors"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func samePixels(a, b *image.NRGBA) bool {
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return false
	}
	for y := 0; y < a.Bounds().Dy(); y++ {
		for x := 0; x < a.Bounds().Dx(); x++ {
			if a.NRGBAAt(x, y) != b.NRGBAAt(x, y) {
				return false
			}
		}
	}
	return true
}

func TestApplyEmptyIsIdentity(t *testing.T) {
	src := testImage(31, 17)
	out, err := Apply(src, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !samePixels(src, out) {
		t.Error("empty operation list changed pixels")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("Apply returned the source buffer")
	}
}

func TestRotateRoundTrip(t *testing.T) {
	src := testImage(40, 25)
	tests := []struct {
		name string
		ops  []Operation
	}{
		{"90 then -90", []Operation{Rotate(90), Rotate(-90)}},
		{"270 then 90", []Operation{Rotate(270), Rotate(90)}},
		{"180 twice", []Operation{Rotate(180), Rotate(180)}},
		{"flip twice", []Operation{Mirror(FlipHorizontal), Mirror(FlipHorizontal)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.ops)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !samePixels(src, out) {
				t.Error("round trip changed pixels")
			}
		})
	}
}

func TestIsIdentity(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want bool
	}{
		{"empty", nil, true},
		{"rotate and back", []Operation{Rotate(90), Rotate(-90)}, true},
		{"rotate 270 and 90", []Operation{Rotate(270), Rotate(90)}, true},
		{"half turn twice", []Operation{Rotate(180), Rotate(180)}, true},
		{"four quarter turns", []Operation{Rotate(90), Rotate(90), Rotate(90), Rotate(90)}, true},
		{"flip twice", []Operation{Mirror(FlipHorizontal), Mirror(FlipHorizontal)}, true},
		{"both flips and half turn", []Operation{Mirror(FlipHorizontal), Mirror(FlipVertical), Rotate(180)}, true},
		{"single rotate", []Operation{Rotate(90)}, false},
		{"both flips", []Operation{Mirror(FlipHorizontal), Mirror(FlipVertical)}, false},
		{"crop", []Operation{Crop(0, 0, ToEdge, ToEdge)}, false},
		{"resize", []Operation{Resize(0, 0)}, false},
		{"invalid angle", []Operation{Rotate(45), Rotate(-45)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdentity(tt.ops); got != tt.want {
				t.Errorf("IsIdentity(%v) = %v, want %v", tt.ops, got, tt.want)
			}
		})
	}
}

func TestRotateIsClockwise(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(2, 0, blue)

	out, err := Apply(src, []Operation{Rotate(90)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 1 || b.Dy() != 3 {
		t.Fatalf("size = %dx%d, want 1x3", b.Dx(), b.Dy())
	}
	if out.NRGBAAt(0, 0) != red || out.NRGBAAt(0, 2) != blue {
		t.Error("rotate(90) is not clockwise")
	}

	out, err = Apply(src, []Operation{Mirror(FlipHorizontal)})
	if err != nil {
		t.Fatalf("Apply flip: %v", err)
	}
	if out.NRGBAAt(0, 0) != blue || out.NRGBAAt(2, 0) != red {
		t.Error("horizontal flip did not mirror")
	}
}

func TestApplyDimensions(t *testing.T) {
	src := testImage(800, 600)
	tests := []struct {
		name         string
		ops          []Operation
		wantW, wantH int
	}{
		{"rotate 90 swaps", []Operation{Rotate(90)}, 600, 800},
		{"rotate 270 swaps", []Operation{Rotate(270)}, 600, 800},
		{"rotate 180 keeps", []Operation{Rotate(180)}, 800, 600},
		{"flip vertical keeps", []Operation{Mirror(FlipVertical)}, 800, 600},
		{"crop", []Operation{Crop(10, 20, 100, 50)}, 100, 50},
		{"crop clamped to bounds", []Operation{Crop(750, 550, 200, 200)}, 50, 50},
		{"crop to edge", []Operation{Crop(100, 100, ToEdge, ToEdge)}, 700, 500},
		{"crop to right edge", []Operation{Crop(100, 100, ToEdge, 50)}, 700, 50},
		{"resize exact", []Operation{Resize(320, 100)}, 320, 100},
		{"resize width keeps aspect", []Operation{Resize(400, 0)}, 400, 300},
		{"resize height keeps aspect", []Operation{Resize(0, 300)}, 400, 300},
		{"rotate then crop uses rotated size", []Operation{Rotate(90), Crop(0, 700, 600, 200)}, 600, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.ops)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if b := out.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestApplyInvalid(t *testing.T) {
	src := testImage(100, 80)
	tests := []struct {
		name string
		op   Operation
	}{
		{"angle 45", Rotate(45)},
		{"angle 0", Rotate(0)},
		{"unknown flip", Mirror("diagonal")},
		{"negative crop", Crop(-1, 0, 10, 10)},
		{"negative crop width", Crop(0, 0, -10, 10)},
		{"zero crop", Crop(0, 0, 0, 0)},
		{"zero crop width", Crop(0, 0, 0, 10)},
		{"zero crop height", Crop(5, 5, 10, 0)},
		{"crop outside", Crop(100, 0, 10, 10)},
		{"crop below", Crop(0, 80, 10, 10)},
		{"resize zero", Resize(0, 0)},
		{"resize negative", Resize(-5, 10)},
		{"resize too large", Resize(MaxResizeDimension+1, 10)},
		{"unknown type", Operation{Type: "blur"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(src, []Operation{tt.op})
			if !errors.Is(err, apperrors.ErrInvalidOperation) {
				t.Errorf("Apply(%s) error = %v, want InvalidOperation", tt.op, err)
			}
		})
	}
}

func TestParseOperations(t *testing.T) {
	data := []byte(`[
		{"type": "rotate", "angle": 90},
		{"type": "flip"},
		{"type": "crop", "x": 1.6, "y": 2, "w": 10.2, "h": 20},
		{"type": "resize", "width": 800}
	]`)
	ops, err := ParseOperations(data)
	if err != nil {
		t.Fatalf("ParseOperations: %v", err)
	}
	want := []Operation{
		Rotate(90),
		Mirror(FlipHorizontal),
		Crop(2, 2, 10, 20),
		Resize(800, 0),
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d operations, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestParseCropDefaultsToEdge(t *testing.T) {
	ops, err := ParseOperations([]byte(`[{"type": "crop", "x": 10, "y": 5, "height": 20}]`))
	if err != nil {
		t.Fatalf("ParseOperations: %v", err)
	}
	if want := Crop(10, 5, ToEdge, 20); ops[0] != want {
		t.Fatalf("op = %+v, want %+v", ops[0], want)
	}

	out, err := Apply(testImage(40, 30), ops)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("size = %dx%d, want 30x20", b.Dx(), b.Dy())
	}
}

func TestParseOperationsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `rotate`},
		{"not an array", `{"type": "rotate", "angle": 90}`},
		{"unknown type", `[{"type": "sharpen"}]`},
		{"rotate without angle", `[{"type": "rotate"}]`},
		{"bad angle", `[{"type": "rotate", "angle": 30}]`},
		{"resize without size", `[{"type": "resize"}]`},
		{"zero crop", `[{"type": "crop", "x": 0, "y": 0, "width": 0, "height": 0}]`},
		{"zero crop alias", `[{"type": "crop", "x": 0, "y": 0, "w": 10, "h": 0}]`},
		{"crop rounds to zero", `[{"type": "crop", "x": 0, "y": 0, "width": 0.4, "height": 10}]`},
		{"negative crop", `[{"type": "crop", "x": -1, "y": 0, "width": 10, "height": 10}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOperations([]byte(tt.data))
			if !errors.Is(err, apperrors.ErrInvalidOperation) {
				t.Errorf("error = %v, want InvalidOperation", err)
			}
		})
	}
}
