/*
Package media decodes gallery images and renders thumbnails.

# Decoding

Registry.Decode picks a decoder by extension. JPEG, PNG, GIF (first frame),
BMP, TIFF and WebP decode in-process through imaging and x/image, with the
EXIF (JPEG) or IFD0 (TIFF) orientation applied. RAW, SVG and ICO go to a
Backend; VipsBackend implements it with libvips.

In ModeThumbnail a RAW file is first searched for an embedded JPEG preview.
TIFF-based containers (CR2, NEF, ARW, DNG, ORF, RW2, PEF, SRW) are walked
through IFD0, chained IFDs, SubIFDs and the Exif IFD, and the largest
baseline JPEG wins when its long edge reaches the requested size (and at
least RawPreviewMin). Otherwise the file is decoded in full.

Decodes are bounded by a workers.Limiter and wait while the memory.Monitor
reports pressure.

# Thumbnails

ThumbnailCache renders JPEG thumbnails into size buckets and keeps them in an
LRU bounded by count and bytes:

	cache, _ := media.NewThumbnailCache(registry, media.ThumbnailOptions{})
	data, err := cache.GetOrCreate(ctx, realPath, 256)

Keys include the file's modification time and size, so edits on disk are
picked up on the next request. Concurrent requests for the same key share one
decode. Failures are not cached.
*/
package media
