package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// gradient returns a w x h image whose top-left pixel is red and whose
// bottom-right pixel is blue, so orientation changes are observable.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(255 * (w - 1 - x) / max(w-1, 1)),
				G: 64,
				B: uint8(255 * y / max(h-1, 1)),
				A: 255,
			})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	return writeFile(t, dir, name, jpegBytes(t, w, h))
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

type ifdEntry struct {
	tag, typ uint16
	value    uint32
}

// tiffContainer builds a little-endian TIFF whose single IFD holds entries,
// followed by payload. Entry values equal to payloadOffset are patched to
// the payload's offset.
const payloadOffset = 0xFFFFFFFF

func tiffContainer(entries []ifdEntry, payload []byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8))

	dataStart := uint32(8 + 2 + len(entries)*12 + 4)
	binary.Write(&buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, le, e.tag)
		binary.Write(&buf, le, e.typ)
		binary.Write(&buf, le, uint32(1))
		v := e.value
		if v == payloadOffset {
			v = dataStart
		}
		if e.typ == tiffTypeShort {
			binary.Write(&buf, le, uint16(v))
			binary.Write(&buf, le, uint16(0))
		} else {
			binary.Write(&buf, le, v)
		}
	}
	binary.Write(&buf, le, uint32(0))
	buf.Write(payload)
	return buf.Bytes()
}

// rawWithPreview builds a TIFF-based RAW file embedding preview and tagged
// with orientation.
func rawWithPreview(preview []byte, orientation int) []byte {
	return tiffContainer([]ifdEntry{
		{tagOrientation, tiffTypeShort, uint32(orientation)},
		{tagJPEGInterchange, tiffTypeLong, payloadOffset},
		{tagJPEGInterchangeLen, tiffTypeLong, uint32(len(preview))},
	}, preview)
}

// withExifOrientation inserts an APP1 Exif segment carrying orientation
// right after the SOI marker of a JPEG.
func withExifOrientation(jpg []byte, orientation int) []byte {
	exif := tiffContainer([]ifdEntry{{tagOrientation, tiffTypeShort, uint32(orientation)}}, nil)
	payload := append([]byte("Exif\x00\x00"), exif...)

	var buf bytes.Buffer
	buf.Write(jpg[:2])
	buf.Write([]byte{0xFF, 0xE1})
	binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write(jpg[2:])
	return buf.Bytes()
}

// fakeBackend stands in for libvips.
type fakeBackend struct {
	mu     sync.Mutex
	calls  int
	maxDim int
	img    image.Image
	err    error
}

func (f *fakeBackend) Load(_ context.Context, _ string, maxDim int) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxDim = maxDim
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingDecoder counts decodes and can hold them until released.
type countingDecoder struct {
	inner   Decoder
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	fail    atomic.Int32
}

func newCountingDecoder(inner Decoder) *countingDecoder {
	return &countingDecoder{inner: inner, started: make(chan struct{})}
}

func (c *countingDecoder) Decode(ctx context.Context, path string, mode Mode, maxDim int) (*DecodedImage, error) {
	c.calls.Add(1)
	c.once.Do(func() { close(c.started) })
	if c.gate != nil {
		<-c.gate
	}
	if c.fail.Load() > 0 {
		c.fail.Add(-1)
		return nil, errBoom
	}
	return c.inner.Decode(ctx, path, mode, maxDim)
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom error = boomError{}

func testRegistry(backend Backend) *Registry {
	return NewRegistry(RegistryOptions{Backend: backend, Workers: 4})
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
