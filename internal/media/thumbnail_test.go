package media

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"os"
	"sync"
	"testing"
	"time"

	"echo-viewer/internal/apperrors"
)

func newTestCache(t *testing.T, dec Decoder, opts ThumbnailOptions) *ThumbnailCache {
	t.Helper()
	c, err := NewThumbnailCache(dec, opts)
	if err != nil {
		t.Fatalf("NewThumbnailCache: %v", err)
	}
	return c
}

func jpegSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestBucket(t *testing.T) {
	tests := []struct {
		dim  int
		want int
	}{
		{0, 300},
		{-5, 300},
		{1, 64},
		{64, 64},
		{65, 128},
		{256, 256},
		{257, 300},
		{300, 300},
		{301, 512},
		{1024, 1024},
		{5000, 1024},
	}
	for _, tt := range tests {
		if got := Bucket(tt.dim); got != tt.want {
			t.Errorf("Bucket(%d) = %d, want %d", tt.dim, got, tt.want)
		}
	}
}

func TestThumbnailMissThenHit(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg", 800, 600)
	dec := newCountingDecoder(testRegistry(nil))
	cache := newTestCache(t, dec, ThumbnailOptions{})

	first, err := cache.GetOrCreate(context.Background(), path, 200)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if w, h := jpegSize(t, first); w != 256 || h != 192 {
		t.Errorf("thumbnail = %dx%d, want 256x192", w, h)
	}

	second, err := cache.GetOrCreate(context.Background(), path, 256)
	if err != nil {
		t.Fatalf("GetOrCreate (hit): %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("hit returned different bytes")
	}
	if n := dec.calls.Load(); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
	if cache.Len() != 1 || cache.Bytes() != int64(len(first)) {
		t.Errorf("Len=%d Bytes=%d, want 1 and %d", cache.Len(), cache.Bytes(), len(first))
	}
}

func TestThumbnailDefaultSize(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "wide.jpg", 1200, 600)
	cache := newTestCache(t, testRegistry(nil), ThumbnailOptions{})

	data, err := cache.GetOrCreate(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if w, h := jpegSize(t, data); w != 300 || h != 150 {
		t.Errorf("thumbnail = %dx%d, want 300x150", w, h)
	}
}

func TestThumbnailCoherentWithModification(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg", 800, 600)
	dec := newCountingDecoder(testRegistry(nil))
	cache := newTestCache(t, dec, ThumbnailOptions{})

	before, err := cache.GetOrCreate(context.Background(), path, 128)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	// Replace the file with a portrait image and move its mtime forward.
	writeJPEG(t, dir, "a.jpg", 300, 600)
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	after, err := cache.GetOrCreate(context.Background(), path, 128)
	if err != nil {
		t.Fatalf("GetOrCreate after modification: %v", err)
	}
	if bytes.Equal(before, after) {
		t.Error("stale thumbnail served after modification")
	}
	if w, h := jpegSize(t, after); w != 64 || h != 128 {
		t.Errorf("thumbnail = %dx%d, want 64x128", w, h)
	}
	if n := dec.calls.Load(); n != 2 {
		t.Errorf("decodes = %d, want 2", n)
	}
}

func TestThumbnailSingleFlight(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg", 400, 300)
	dec := newCountingDecoder(testRegistry(nil))
	dec.gate = make(chan struct{})
	cache := newTestCache(t, dec, ThumbnailOptions{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCreate(context.Background(), path, 128)
		}(i)
	}

	<-dec.started
	time.Sleep(20 * time.Millisecond)
	close(dec.gate)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], results[0]) {
			t.Errorf("caller %d got different bytes", i)
		}
	}
	if n := dec.calls.Load(); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
}

func TestThumbnailCallerCancelDoesNotAbortGeneration(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg", 400, 300)
	dec := newCountingDecoder(testRegistry(nil))
	dec.gate = make(chan struct{})
	cache := newTestCache(t, dec, ThumbnailOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCreate(ctx, path, 128)
		done <- err
	}()

	<-dec.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(dec.gate)
	if _, err := cache.GetOrCreate(context.Background(), path, 128); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if n := dec.calls.Load(); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
}

func TestThumbnailErrorsNotCached(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg", 100, 100)
	dec := newCountingDecoder(testRegistry(nil))
	dec.fail.Store(1)
	cache := newTestCache(t, dec, ThumbnailOptions{})

	if _, err := cache.GetOrCreate(context.Background(), path, 64); err == nil {
		t.Fatal("expected first generation to fail")
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d after failure, want 0", cache.Len())
	}
	if _, err := cache.GetOrCreate(context.Background(), path, 64); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := dec.calls.Load(); n != 2 {
		t.Errorf("decodes = %d, want 2", n)
	}
}

func TestThumbnailEviction(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeJPEG(t, dir, "a.jpg", 200, 100),
		writeJPEG(t, dir, "b.jpg", 200, 100),
		writeJPEG(t, dir, "c.jpg", 200, 100),
	}
	cache := newTestCache(t, testRegistry(nil), ThumbnailOptions{MaxEntries: 2})

	sizes := make([]int64, len(paths))
	for i, p := range paths {
		data, err := cache.GetOrCreate(context.Background(), p, 64)
		if err != nil {
			t.Fatalf("GetOrCreate(%s): %v", p, err)
		}
		sizes[i] = int64(len(data))
	}

	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}
	if want := sizes[1] + sizes[2]; cache.Bytes() != want {
		t.Errorf("Bytes = %d, want %d", cache.Bytes(), want)
	}

	cache.Purge()
	if cache.Len() != 0 || cache.Bytes() != 0 {
		t.Errorf("after Purge: Len=%d Bytes=%d", cache.Len(), cache.Bytes())
	}
}

func TestThumbnailErrors(t *testing.T) {
	dir := t.TempDir()
	cache := newTestCache(t, testRegistry(nil), ThumbnailOptions{})

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", dir + "/gone.jpg", apperrors.ErrNotFound},
		{"not an image", writeFile(t, dir, "a.txt", []byte("x")), apperrors.ErrUnsupportedFormat},
		{"corrupt", writeFile(t, dir, "bad.png", []byte("nope")), apperrors.ErrCorruptFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cache.GetOrCreate(context.Background(), tt.path, 64)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
