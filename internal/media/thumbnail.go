package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/mediatypes"
	"echo-viewer/internal/metrics"
)

// Thumbnail sizing.
const (
	DefaultThumbnailSize       = 300
	DefaultThumbnailCacheCount = 2048
	DefaultThumbnailCacheBytes = 256 << 20
)

// ThumbnailBuckets are the sizes thumbnails are rendered at. A request is
// served from the smallest bucket that is at least as large.
var ThumbnailBuckets = []int{64, 128, 256, 300, 512, 1024}

// Decoder is the part of Registry the thumbnail cache needs.
type Decoder interface {
	Decode(ctx context.Context, path string, mode Mode, maxDim int) (*DecodedImage, error)
}

// ThumbnailOptions configures a ThumbnailCache.
type ThumbnailOptions struct {
	// DefaultSize is used when a request names no size.
	DefaultSize int
	// MaxEntries bounds the number of cached thumbnails.
	MaxEntries int
	// MaxBytes bounds the total encoded size of cached thumbnails.
	MaxBytes int64
	Retry    filesystem.RetryConfig
}

// thumbKey identifies one rendering of one version of a file. A rewritten
// file gets a new mtime and so a new key.
type thumbKey struct {
	path   string
	mtime  int64
	size   int64
	bucket int
}

// ThumbnailCache holds encoded JPEG thumbnails in memory, keyed by file
// version and size bucket. It is safe for concurrent use.
type ThumbnailCache struct {
	decoder     Decoder
	defaultSize int
	maxBytes    int64
	retry       filesystem.RetryConfig

	// mu serializes inserts so the byte budget is enforced consistently.
	mu    sync.Mutex
	cache *lru.Cache[thumbKey, []byte]
	bytes atomic.Int64

	group singleflight.Group
}

// NewThumbnailCache creates a cache that renders misses with decoder.
func NewThumbnailCache(decoder Decoder, opts ThumbnailOptions) (*ThumbnailCache, error) {
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = DefaultThumbnailSize
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultThumbnailCacheCount
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultThumbnailCacheBytes
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}

	t := &ThumbnailCache{
		decoder:     decoder,
		defaultSize: Bucket(opts.DefaultSize),
		maxBytes:    opts.MaxBytes,
		retry:       opts.Retry,
	}

	cache, err := lru.NewWithEvict(opts.MaxEntries, t.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache: %w", err)
	}
	t.cache = cache

	logging.Debug("ThumbnailCache: %d entries, %d MB, default size %dpx",
		opts.MaxEntries, opts.MaxBytes>>20, t.defaultSize)
	return t, nil
}

// Bucket returns the smallest thumbnail bucket >= dim, capped at the
// largest bucket. dim <= 0 yields DefaultThumbnailSize.
func Bucket(dim int) int {
	if dim <= 0 {
		dim = DefaultThumbnailSize
	}
	for _, b := range ThumbnailBuckets {
		if b >= dim {
			return b
		}
	}
	return ThumbnailBuckets[len(ThumbnailBuckets)-1]
}

// GetOrCreate returns a JPEG thumbnail of realPath, an already sandboxed
// absolute path, fitting a dim x dim box (dim <= 0 uses the default size).
//
// Concurrent requests for the same key share one decode. If ctx ends first
// the caller gets its error while the shared generation runs to completion
// and is cached for the next request.
func (t *ThumbnailCache) GetOrCreate(ctx context.Context, realPath string, dim int) ([]byte, error) {
	name := filepath.Base(realPath)
	if !mediatypes.IsImage(realPath) {
		return nil, apperrors.New(apperrors.KindUnsupportedFormat, "thumbnail", name,
			fmt.Sprintf("unsupported file type %q", mediatypes.Ext(realPath)))
	}

	bucket := t.defaultSize
	if dim > 0 {
		bucket = Bucket(dim)
	}

	info, err := filesystem.StatWithRetry(realPath, t.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.KindNotFound, "thumbnail", name, "not found")
		}
		return nil, classifyDecodeError(realPath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "thumbnail", name, "not a file")
	}

	key := thumbKey{
		path:   realPath,
		mtime:  info.ModTime().UnixNano(),
		size:   info.Size(),
		bucket: bucket,
	}

	if data, ok := t.cache.Get(key); ok {
		metrics.ThumbnailCacheHits.Inc()
		logging.Debug("Thumbnail cache hit: %s @%d", name, bucket)
		return data, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	// The flight must not die with the first caller's request.
	genCtx := context.WithoutCancel(ctx)
	var leader bool
	ch := t.group.DoChan(flightKey(key), func() (any, error) {
		leader = true
		return t.generate(genCtx, key)
	})

	select {
	case res := <-ch:
		if !leader {
			metrics.ThumbnailCacheShared.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.KindIO, "thumbnail", name, ctx.Err())
	}
}

func flightKey(k thumbKey) string {
	return fmt.Sprintf("%s\x00%d\x00%d\x00%d", k.path, k.mtime, k.size, k.bucket)
}

func (t *ThumbnailCache) generate(ctx context.Context, key thumbKey) ([]byte, error) {
	// A flight that started just after another one finished finds its result.
	if data, ok := t.cache.Peek(key); ok {
		return data, nil
	}

	kind := string(mediatypes.KindOf(key.path))
	start := time.Now()

	data, err := t.render(ctx, key)
	metrics.ThumbnailGenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "error").Inc()
		logging.Warn("Thumbnail generation failed for %s: %v", filepath.Base(key.path), err)
		return nil, err
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "success").Inc()

	t.store(key, data)
	logging.Debug("Thumbnail generated: %s @%d (%d bytes, %v)",
		filepath.Base(key.path), key.bucket, len(data), time.Since(start))
	return data, nil
}

func (t *ThumbnailCache) render(ctx context.Context, key thumbKey) ([]byte, error) {
	d, err := t.decoder.Decode(ctx, key.path, ModeThumbnail, key.bucket)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fit(d.Image, key.bucket, key.bucket, imaging.Lanczos)
	data, err := EncodeJPEG(thumb, ThumbnailJPEGQuality)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "thumbnail", filepath.Base(key.path), err)
	}
	return data, nil
}

func (t *ThumbnailCache) store(key thumbKey, data []byte) {
	size := int64(len(data))
	if size > t.maxBytes {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cache.Contains(key) {
		return
	}
	t.cache.Add(key, data)
	t.bytes.Add(size)
	for t.bytes.Load() > t.maxBytes {
		if _, _, ok := t.cache.RemoveOldest(); !ok {
			break
		}
	}
	t.updateGauges()
}

func (t *ThumbnailCache) onEvict(_ thumbKey, data []byte) {
	t.bytes.Add(-int64(len(data)))
	metrics.ThumbnailCacheEvictions.Inc()
}

func (t *ThumbnailCache) updateGauges() {
	metrics.ThumbnailCacheSize.Set(float64(t.bytes.Load()))
	metrics.ThumbnailCacheCount.Set(float64(t.cache.Len()))
}

// Len returns the number of cached thumbnails.
func (t *ThumbnailCache) Len() int {
	return t.cache.Len()
}

// Bytes returns the total size of cached thumbnails.
func (t *ThumbnailCache) Bytes() int64 {
	return t.bytes.Load()
}

// Purge empties the cache.
func (t *ThumbnailCache) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Purge()
	t.updateGauges()
}
