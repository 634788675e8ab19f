package media

import (
	"context"
	"errors"
	"testing"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/mediatypes"
)

func TestDecodeRaster(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		path   string
		format string
		kind   mediatypes.Kind
	}{
		{"jpeg", writeJPEG(t, dir, "a.jpg", 80, 60), "jpg", mediatypes.KindRaster},
		{"uppercase extension", writeJPEG(t, dir, "B.JPEG", 80, 60), "jpeg", mediatypes.KindRaster},
		{"png", writePNG(t, dir, "c.png", 80, 60), "png", mediatypes.KindRaster},
	}

	r := testRegistry(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Decode(context.Background(), tt.path, ModeFull, 0)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if d.Width != 80 || d.Height != 60 {
				t.Errorf("size = %dx%d, want 80x60", d.Width, d.Height)
			}
			if d.Format != tt.format {
				t.Errorf("Format = %q, want %q", d.Format, tt.format)
			}
			if d.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", d.Kind, tt.kind)
			}
			if d.Orientation != 1 {
				t.Errorf("Orientation = %d, want 1", d.Orientation)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	r := testRegistry(nil)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"unknown extension", writeFile(t, dir, "notes.txt", []byte("hi")), apperrors.ErrUnsupportedFormat},
		{"missing file", dir + "/missing.jpg", apperrors.ErrNotFound},
		{"corrupt jpeg", writeFile(t, dir, "bad.jpg", []byte("not a jpeg at all")), apperrors.ErrCorruptFile},
		{"svg without backend", writeFile(t, dir, "v.svg", []byte("<svg/>")), apperrors.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Decode(context.Background(), tt.path, ModeFull, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeAppliesExifOrientation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rotated.jpg", withExifOrientation(jpegBytes(t, 40, 20), 6))

	d, err := testRegistry(nil).Decode(context.Background(), path, ModeFull, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Orientation != 6 {
		t.Errorf("Orientation = %d, want 6", d.Orientation)
	}
	if d.Width != 20 || d.Height != 40 {
		t.Errorf("size = %dx%d, want 20x40", d.Width, d.Height)
	}
}

func TestDecodeBackendFormats(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{img: gradient(30, 30)}
	r := testRegistry(backend)

	svg := writeFile(t, dir, "logo.svg", []byte("<svg/>"))
	d, err := r.Decode(context.Background(), svg, ModeThumbnail, 128)
	if err != nil {
		t.Fatalf("Decode svg: %v", err)
	}
	if d.Kind != mediatypes.KindVector || d.Width != 30 {
		t.Errorf("got kind %q width %d", d.Kind, d.Width)
	}
	if backend.maxDim != 128 {
		t.Errorf("backend maxDim = %d, want 128", backend.maxDim)
	}

	ico := writeFile(t, dir, "fav.ico", []byte{0, 0, 1, 0})
	if _, err := r.Decode(context.Background(), ico, ModeFull, 0); err != nil {
		t.Fatalf("Decode ico: %v", err)
	}
	if backend.Calls() != 2 {
		t.Errorf("backend calls = %d, want 2", backend.Calls())
	}
}

func TestDecodeBackendFailureIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	r := testRegistry(&fakeBackend{err: errBoom})
	path := writeFile(t, dir, "x.cr2", []byte("garbage"))

	_, err := r.Decode(context.Background(), path, ModeFull, 0)
	if !errors.Is(err, apperrors.ErrCorruptFile) {
		t.Errorf("Decode error = %v, want CorruptFile", err)
	}
}

func TestDecodeRawPreview(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "IMG_0001.NEF", rawWithPreview(jpegBytes(t, 320, 200), 8))
	backend := &fakeBackend{img: gradient(10, 10)}
	r := testRegistry(backend)

	d, err := r.Decode(context.Background(), path, ModeThumbnail, 256)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.Preview {
		t.Error("expected embedded preview to be used")
	}
	if d.Orientation != 8 {
		t.Errorf("Orientation = %d, want 8", d.Orientation)
	}
	if d.Width != 200 || d.Height != 320 {
		t.Errorf("size = %dx%d, want 200x320", d.Width, d.Height)
	}
	if backend.Calls() != 0 {
		t.Errorf("backend called %d times, want 0", backend.Calls())
	}

	// Full mode never uses the preview.
	d, err = r.Decode(context.Background(), path, ModeFull, 0)
	if err != nil {
		t.Fatalf("Decode full: %v", err)
	}
	if d.Preview || backend.Calls() != 1 {
		t.Errorf("full decode: preview=%v backend calls=%d", d.Preview, backend.Calls())
	}
}

func TestDecodeRawPreviewTooSmall(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "small.dng", rawWithPreview(jpegBytes(t, 120, 80), 1))

	t.Run("falls back to backend", func(t *testing.T) {
		backend := &fakeBackend{img: gradient(600, 400)}
		d, err := testRegistry(backend).Decode(context.Background(), path, ModeThumbnail, 64)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if d.Preview || backend.Calls() != 1 {
			t.Errorf("preview=%v backend calls=%d, want full decode", d.Preview, backend.Calls())
		}
	})

	t.Run("no backend", func(t *testing.T) {
		_, err := testRegistry(nil).Decode(context.Background(), path, ModeThumbnail, 64)
		if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
			t.Errorf("Decode error = %v, want UnsupportedFormat", err)
		}
	})
}

func TestFindRawPreviewRejectsNonTIFF(t *testing.T) {
	data := []byte("ftypcrx not a tiff container")
	if _, _, err := findRawPreview(bytesReader(data), int64(len(data))); err == nil {
		t.Error("expected error for non-TIFF data")
	}
}

func TestJPEGExifOrientation(t *testing.T) {
	plain := jpegBytes(t, 8, 8)
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"no exif", plain, 1},
		{"rotate 90 cw", withExifOrientation(plain, 6), 6},
		{"mirrored", withExifOrientation(plain, 2), 2},
		{"out of range", withExifOrientation(plain, 9), 1},
		{"not a jpeg", []byte("hello"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jpegExifOrientation(tt.data); got != tt.want {
				t.Errorf("jpegExifOrientation = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyOrientationDimensions(t *testing.T) {
	src := gradient(40, 20)
	for o := 1; o <= 8; o++ {
		b := applyOrientation(src, o).Bounds()
		wantW, wantH := 40, 20
		if o >= 5 {
			wantW, wantH = 20, 40
		}
		if b.Dx() != wantW || b.Dy() != wantH {
			t.Errorf("orientation %d: %dx%d, want %dx%d", o, b.Dx(), b.Dy(), wantW, wantH)
		}
	}
}
