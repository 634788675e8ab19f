package gallery

import (
	"context"
	"io"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/media"
	"echo-viewer/internal/mediatypes"
)

// FetchOptions selects what FetchImage returns.
type FetchOptions struct {
	Thumbnail bool
	// Width and Height bound the result; zero means unconstrained. For
	// thumbnails the larger of the two picks the size bucket.
	Width  int
	Height int
}

// Image is encoded image data ready to send.
type Image struct {
	Data        []byte
	ContentType string
}

// FetchImage returns rel inside galleryRoot as a thumbnail or a full view.
func (s *Service) FetchImage(ctx context.Context, galleryRoot, rel string, opts FetchOptions) (*Image, error) {
	loc, _, err := s.resolveImage("image", galleryRoot, rel)
	if err != nil {
		return nil, err
	}

	if opts.Thumbnail {
		data, err := s.thumbnails.GetOrCreate(ctx, loc.Abs, max(opts.Width, opts.Height))
		if err != nil {
			return nil, err
		}
		return &Image{Data: data, ContentType: "image/jpeg"}, nil
	}

	// Unscaled SVG is sent as-is; the browser renders it.
	if mediatypes.IsSVG(loc.Abs) && opts.Width <= 0 && opts.Height <= 0 {
		data, err := s.readFile(loc.Abs, rel)
		if err != nil {
			return nil, err
		}
		return &Image{Data: data, ContentType: mediatypes.GetMimeType(loc.Abs)}, nil
	}

	decoded, err := s.decoder.Decode(ctx, loc.Abs, media.ModeFull, max(opts.Width, opts.Height))
	if err != nil {
		return nil, err
	}
	img := media.ScaleToRequest(decoded.Image, opts.Width, opts.Height)
	enc, err := media.EncodeForTransport(img, loc.Abs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "image", rel, err)
	}
	return &Image{Data: enc.Data, ContentType: enc.ContentType}, nil
}

func (s *Service) readFile(abs, rel string) ([]byte, error) {
	f, err := filesystem.OpenWithRetry(abs, s.retry)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "image", rel, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "image", rel, err)
	}
	return data, nil
}
