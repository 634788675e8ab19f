package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestEncodeForTransport(t *testing.T) {
	img := gradient(20, 10)
	tests := []struct {
		name        string
		file        string
		contentType string
	}{
		{"jpeg source", "a.jpg", "image/jpeg"},
		{"raw source", "a.nef", "image/jpeg"},
		{"png keeps alpha", "a.png", "image/png"},
		{"webp keeps alpha", "a.webp", "image/png"},
		{"svg keeps alpha", "a.svg", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := EncodeForTransport(img, tt.file)
			if err != nil {
				t.Fatalf("EncodeForTransport: %v", err)
			}
			if enc.ContentType != tt.contentType {
				t.Errorf("ContentType = %q, want %q", enc.ContentType, tt.contentType)
			}
			var cfg image.Config
			if tt.contentType == "image/png" {
				cfg, err = png.DecodeConfig(bytes.NewReader(enc.Data))
			} else {
				cfg, err = jpeg.DecodeConfig(bytes.NewReader(enc.Data))
			}
			if err != nil {
				t.Fatalf("output does not decode: %v", err)
			}
			if cfg.Width != 20 || cfg.Height != 10 {
				t.Errorf("size = %dx%d, want 20x10", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{})

	out := Flatten(img)
	r, g, b, a := out.At(1, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("transparent pixel = (%d,%d,%d,%d), want white", r>>8, g>>8, b>>8, a>>8)
	}
	if r, _, _, _ := out.At(0, 0).RGBA(); r>>8 != 255 {
		t.Errorf("opaque pixel red = %d, want 255", r>>8)
	}

	opaque := gradient(2, 2)
	if Flatten(opaque) != image.Image(opaque) {
		t.Error("opaque image was copied")
	}
}

func TestScaleToRequest(t *testing.T) {
	src := gradient(800, 600)
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"no request", 0, 0, 800, 600},
		{"width only", 400, 0, 400, 300},
		{"height only", 0, 300, 400, 300},
		{"box fits", 400, 400, 400, 300},
		{"box never enlarges", 1600, 1200, 800, 600},
		{"negative ignored", -1, 150, 200, 150},
		{"width never enlarges", 1600, 0, 800, 600},
		{"height never enlarges", 0, 4096, 800, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ScaleToRequest(src, tt.width, tt.height).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestScaleToRequestThinImage(t *testing.T) {
	banner := gradient(64, 4)
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"tall request", 0, 4096, 64, 4},
		{"wide request", 4096, 0, 64, 4},
		{"box request", 4096, 4096, 64, 4},
		{"shrink", 32, 0, 32, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ScaleToRequest(banner, tt.width, tt.height).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}
