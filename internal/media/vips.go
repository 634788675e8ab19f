package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"echo-viewer/internal/logging"
	"echo-viewer/internal/mediatypes"
)

var (
	vipsMu        sync.Mutex
	vipsAvailable bool
)

// vipsLogLevel picks the most verbose vips level worth forwarding at the
// current application level.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips. Call once at startup; later calls are no-ops.
func InitVips(workers int) error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsAvailable {
		return nil
	}

	// Logging must be configured before Startup.
	vips.LoggingSettings(vipsLogHandler, vipsLogLevel(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1, // parallelism comes from the decode limiter
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		MaxCacheFiles:    0,
	})

	vipsAvailable = true
	logging.Info("libvips initialized (version: %s, %d decode workers)", vips.Version, workers)
	return nil
}

// ShutdownVips releases libvips.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsAvailable {
		vips.Shutdown()
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsAvailable
}

// VipsBackend decodes RAW (libraw or ImageMagick loader), SVG (librsvg) and
// ICO (ImageMagick loader) through libvips.
type VipsBackend struct{}

// Load implements Backend. The image is auto-rotated by libvips and handed
// over as a lossless PNG round trip.
func (VipsBackend) Load(ctx context.Context, path string, maxDim int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	var (
		ref *vips.ImageRef
		err error
	)
	if maxDim > 0 {
		// Vectors rasterize at the requested size; rasters only shrink.
		size := vips.SizeDown
		if mediatypes.IsSVG(path) {
			size = vips.SizeBoth
		}
		logging.Debug("Loading %s with vips thumbnail (max %dpx)", name, maxDim)
		ref, err = vips.LoadThumbnailFromFile(path, maxDim, maxDim, vips.InterestingNone, size, vips.NewImportParams())
	} else {
		logging.Debug("Loading %s with vips", name)
		ref, err = vips.LoadImageFromFile(path, vips.NewImportParams())
		if err == nil {
			err = ref.AutoRotate()
		}
	}
	if ref != nil {
		defer ref.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("vips failed to load %s: %w", name, err)
	}

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	logging.Debug("Vips decoded %s: %dx%d", name, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}
