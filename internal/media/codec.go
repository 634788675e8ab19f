package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	// Standard raster decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/mediatypes"
	"echo-viewer/internal/memory"
	"echo-viewer/internal/metrics"
	"echo-viewer/internal/workers"
)

// MaxDecodePixels bounds in-process raster decodes. A 200MP RGBA buffer is
// already 800MB.
const MaxDecodePixels = 200_000_000

// DefaultRawPreviewMin is the smallest embedded RAW preview (long edge)
// accepted for a thumbnail request.
const DefaultRawPreviewMin = 160

// Mode selects the decode path.
type Mode int

const (
	// ModeFull decodes the full-resolution image.
	ModeFull Mode = iota
	// ModeThumbnail may use a cheaper source, such as the JPEG preview
	// embedded in a RAW file, when it is large enough.
	ModeThumbnail
)

func (m Mode) String() string {
	if m == ModeThumbnail {
		return "thumbnail"
	}
	return "full"
}

// DecodedImage is an upright decoded image. It belongs to the caller that
// requested it.
type DecodedImage struct {
	Image image.Image
	// Width and Height are the upright dimensions.
	Width  int
	Height int
	// Format is the lowercase source extension without the dot.
	Format string
	Kind   mediatypes.Kind
	// Orientation is the EXIF orientation that was applied (1 = none).
	Orientation int
	// Preview is true when a RAW file's embedded preview was used.
	Preview bool
}

// Backend decodes formats the Go image libraries cannot: RAW, SVG and ICO.
// maxDim > 0 lets the backend shrink on load (and sets the raster size of
// vector images); 0 asks for the native size. The result is upright.
type Backend interface {
	Load(ctx context.Context, path string, maxDim int) (image.Image, error)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Backend handles RAW, SVG and ICO. Nil makes those formats fail with
	// ErrUnsupportedFormat.
	Backend Backend
	// Workers bounds concurrent decodes (default: workers.ForCPU(8)).
	Workers int
	// Monitor, when set, holds back new decodes under memory pressure.
	Monitor *memory.Monitor
	// RawPreviewMin defaults to DefaultRawPreviewMin.
	RawPreviewMin int
	Retry         filesystem.RetryConfig
}

// Registry decodes image files by extension.
type Registry struct {
	backend       Backend
	limiter       *workers.Limiter
	monitor       *memory.Monitor
	rawPreviewMin int
	retry         filesystem.RetryConfig
}

// NewRegistry creates a Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Workers <= 0 {
		opts.Workers = workers.ForCPU(8)
	}
	if opts.RawPreviewMin <= 0 {
		opts.RawPreviewMin = DefaultRawPreviewMin
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	logging.Debug("Codec registry: %d decode workers, RAW preview minimum %dpx", opts.Workers, opts.RawPreviewMin)

	return &Registry{
		backend:       opts.Backend,
		limiter:       workers.NewLimiter(opts.Workers),
		monitor:       opts.Monitor,
		rawPreviewMin: opts.RawPreviewMin,
		retry:         opts.Retry,
	}
}

// Decode decodes the image at path, an already sandboxed absolute path.
// maxDim is the size the caller intends to display at (0 for native); it
// only steers the choice of source and the backend's shrink-on-load.
func (r *Registry) Decode(ctx context.Context, path string, mode Mode, maxDim int) (_ *DecodedImage, err error) {
	kind := mediatypes.KindOf(path)
	if kind == mediatypes.KindUnknown {
		return nil, apperrors.New(apperrors.KindUnsupportedFormat, "decode", filepath.Base(path),
			fmt.Sprintf("unsupported file type %q", mediatypes.Ext(path)))
	}

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DecodeTotal.WithLabelValues(string(kind), status).Inc()
		metrics.DecodeDuration.WithLabelValues(string(kind), mode.String()).Observe(time.Since(start).Seconds())
	}()

	if err := r.monitor.WaitIfPaused(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "decode", filepath.Base(path), err)
	}
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "decode", filepath.Base(path), err)
	}
	metrics.DecodeWorkersBusy.Inc()
	defer func() {
		metrics.DecodeWorkersBusy.Dec()
		r.limiter.Release()
	}()

	d := &DecodedImage{
		Format:      mediatypes.Ext(path)[1:],
		Kind:        kind,
		Orientation: orientationNormal,
	}

	switch {
	case kind == mediatypes.KindRaw && mode == ModeThumbnail:
		d.Image, d.Orientation, err = decodeRawPreview(path, max(maxDim, r.rawPreviewMin), r.retry)
		if err == nil {
			d.Preview = true
			metrics.RawPreviewTotal.WithLabelValues("embedded").Inc()
			break
		}
		logging.Debug("No usable RAW preview in %s (%v), decoding in full", filepath.Base(path), err)
		metrics.RawPreviewTotal.WithLabelValues("full").Inc()
		d.Image, err = r.decodeBackend(ctx, path, maxDim)
	case kind == mediatypes.KindRaw || kind == mediatypes.KindVector || d.Format == "ico":
		d.Image, err = r.decodeBackend(ctx, path, maxDim)
	default:
		d.Image, d.Orientation, err = r.decodeStandard(path)
	}
	if err != nil {
		return nil, classifyDecodeError(path, err)
	}

	b := d.Image.Bounds()
	d.Width, d.Height = b.Dx(), b.Dy()
	return d, nil
}

func (r *Registry) decodeBackend(ctx context.Context, path string, maxDim int) (image.Image, error) {
	if r.backend == nil {
		return nil, apperrors.New(apperrors.KindUnsupportedFormat, "decode", filepath.Base(path),
			"no decoder available for "+mediatypes.Ext(path)+" files")
	}
	if _, err := filesystem.StatWithRetry(path, r.retry); err != nil {
		return nil, err
	}
	return r.backend.Load(ctx, path, maxDim)
}

// decodeStandard decodes JPEG, PNG, GIF (first frame), BMP, TIFF and WebP
// in-process and applies EXIF or TIFF orientation.
func (r *Registry) decodeStandard(path string) (image.Image, int, error) {
	f, err := filesystem.OpenWithRetry(path, r.retry)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, corrupt(path, err)
	}
	if cfg.Width*cfg.Height > MaxDecodePixels {
		return nil, 0, apperrors.New(apperrors.KindUnsupportedFormat, "decode", filepath.Base(path),
			fmt.Sprintf("image too large (%dx%d)", cfg.Width, cfg.Height))
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, corrupt(path, err)
	}

	orientation := orientationNormal
	switch mediatypes.Ext(path) {
	case ".jpg", ".jpeg":
		orientation = jpegExifOrientation(data)
	case ".tif", ".tiff":
		orientation = tiffOrientation(bytes.NewReader(data), int64(len(data)))
	}
	return applyOrientation(img, orientation), orientation, nil
}

func corrupt(path string, err error) error {
	return apperrors.Wrap(apperrors.KindCorruptFile, "decode", filepath.Base(path), err)
}

// classifyDecodeError maps filesystem failures to error kinds and treats
// anything else as undecodable content.
func classifyDecodeError(path string, err error) error {
	var ae *apperrors.Error
	name := filepath.Base(path)
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.New(apperrors.KindNotFound, "decode", name, "not found")
	case errors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(apperrors.KindPermissionDenied, "decode", name, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.KindIO, "decode", name, err)
	}
	var pe *os.PathError
	if errors.As(err, &pe) {
		return apperrors.Wrap(apperrors.KindIO, "decode", name, err)
	}
	return corrupt(path, err)
}
