package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind is the decode strategy family for an image extension.
type Kind string

const (
	// KindRaster is a single-frame raster image decoded in-process.
	KindRaster Kind = "raster"
	// KindAnimated is a multi-frame raster; only the first frame is used.
	KindAnimated Kind = "animated"
	// KindVector is a vector image rasterized by libvips.
	KindVector Kind = "vector"
	// KindRaw is a camera sensor dump requiring demosaicing.
	KindRaw Kind = "raw"
	// KindUnknown is anything we do not treat as an image.
	KindUnknown Kind = ""
)

// ImageExtensions maps lowercase extensions to their decode kind.
var ImageExtensions = map[string]Kind{
	".jpg":  KindRaster,
	".jpeg": KindRaster,
	".png":  KindRaster,
	".bmp":  KindRaster,
	".tiff": KindRaster,
	".tif":  KindRaster,
	".webp": KindRaster,
	".ico":  KindRaster,
	".gif":  KindAnimated,
	".svg":  KindVector,

	// RAW formats
	".raw": KindRaw,
	".cr2": KindRaw,
	".cr3": KindRaw,
	".nef": KindRaw,
	".arw": KindRaw,
	".dng": KindRaw,
	".orf": KindRaw,
	".rw2": KindRaw,
	".pef": KindRaw,
	".srw": KindRaw,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// Ext returns the lowercase extension of name, including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// KindOf returns the decode kind for a file name, case-insensitively.
func KindOf(name string) Kind {
	return ImageExtensions[Ext(name)]
}

// IsImage reports whether name has a known image extension.
func IsImage(name string) bool {
	return KindOf(name) != KindUnknown
}

// IsRaw reports whether name is a camera RAW file.
func IsRaw(name string) bool {
	return KindOf(name) == KindRaw
}

// IsSVG reports whether name is an SVG file.
func IsSVG(name string) bool {
	return Ext(name) == ".svg"
}

// GetMimeType returns the MIME type for a file name.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[Ext(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// MayHaveAlpha reports whether images of this extension commonly carry
// transparency, in which case PNG is preferred over JPEG for transport.
func MayHaveAlpha(name string) bool {
	switch Ext(name) {
	case ".png", ".gif", ".webp", ".ico", ".svg":
		return true
	}
	return false
}
