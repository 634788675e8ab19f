package gallery

import (
	"context"
	"errors"
	"os"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/auth"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/indexer"
	"echo-viewer/internal/media"
	"echo-viewer/internal/mediatypes"
	"echo-viewer/internal/sandbox"
)

// Authenticator is the part of auth.Service the gallery consults.
type Authenticator interface {
	IsEnabled() bool
	IsAuthenticated(ctx context.Context, token string) bool
	Status(ctx context.Context) (auth.Status, error)
}

// Options wires a Service to its collaborators. Sandbox, Indexer, Decoder
// and Thumbnails are required.
type Options struct {
	Sandbox    *sandbox.Sandbox
	Indexer    *indexer.Indexer
	Decoder    media.Decoder
	Thumbnails *media.ThumbnailCache
	// Auth defaults to auth.Disabled().
	Auth Authenticator
	// Writable reports why a directory cannot be modified, or nil. It
	// defaults to filesystem.CheckWritable.
	Writable func(dir string) error
	Retry    filesystem.RetryConfig
}

// Service is the gallery's public surface. It is safe for concurrent use;
// the thumbnail cache is its only shared mutable state.
type Service struct {
	sandbox    *sandbox.Sandbox
	indexer    *indexer.Indexer
	decoder    media.Decoder
	thumbnails *media.ThumbnailCache
	auth       Authenticator
	writable   func(dir string) error
	retry      filesystem.RetryConfig
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	switch {
	case opts.Sandbox == nil:
		return nil, errors.New("gallery: sandbox is required")
	case opts.Indexer == nil:
		return nil, errors.New("gallery: indexer is required")
	case opts.Decoder == nil:
		return nil, errors.New("gallery: decoder is required")
	case opts.Thumbnails == nil:
		return nil, errors.New("gallery: thumbnail cache is required")
	}
	if opts.Auth == nil {
		opts.Auth = auth.Disabled()
	}
	if opts.Writable == nil {
		opts.Writable = filesystem.CheckWritable
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	return &Service{
		sandbox:    opts.Sandbox,
		indexer:    opts.Indexer,
		decoder:    opts.Decoder,
		thumbnails: opts.Thumbnails,
		auth:       opts.Auth,
		writable:   opts.Writable,
		retry:      opts.Retry,
	}, nil
}

// Listing is the content of one gallery folder.
type Listing struct {
	Path        string                `json:"path"`
	Breadcrumbs []indexer.Breadcrumb  `json:"breadcrumbs"`
	Folders     []indexer.FolderEntry `json:"folders"`
	Images      []indexer.ImageEntry  `json:"images"`
}

// BrowseInfo is breadcrumb navigation for the folder picker.
type BrowseInfo struct {
	Breadcrumbs []indexer.Breadcrumb `json:"breadcrumbs"`
	CurrentPath string               `json:"current_path"`
}

// List returns the folders and images of rel inside galleryRoot.
func (s *Service) List(ctx context.Context, galleryRoot, rel string) (*Listing, error) {
	loc, err := s.sandbox.ResolveInGallery(galleryRoot, rel, true)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "list", rel, err)
	}

	folders, err := s.indexer.ListFolders(loc.Base, loc.Rel)
	if err != nil {
		return nil, err
	}
	images, err := s.indexer.ListImages(loc.Base, loc.Rel)
	if err != nil {
		return nil, err
	}
	return &Listing{
		Path:        loc.Rel,
		Breadcrumbs: s.indexer.Breadcrumbs(loc.Rel),
		Folders:     nonNil(folders),
		Images:      images,
	}, nil
}

// Browse lists the folders of rel inside the browse root, for choosing a
// gallery root.
func (s *Service) Browse(ctx context.Context, rel string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "browse", rel, err)
	}
	folders, err := s.indexer.BrowseFolders(s.sandbox.BrowseRoot(), rel)
	if err != nil {
		return nil, err
	}
	cleaned, err := sandbox.Clean(rel)
	if err != nil {
		return nil, err
	}
	return &Listing{
		Path:        cleaned,
		Breadcrumbs: s.indexer.Breadcrumbs(cleaned),
		Folders:     nonNil(folders),
		Images:      []indexer.ImageEntry{},
	}, nil
}

// BrowseInfo returns breadcrumbs for rel without touching the filesystem.
func (s *Service) BrowseInfo(rel string) (*BrowseInfo, error) {
	cleaned, err := sandbox.Clean(rel)
	if err != nil {
		return nil, err
	}
	return &BrowseInfo{Breadcrumbs: s.indexer.Breadcrumbs(cleaned), CurrentPath: cleaned}, nil
}

// AuthStatus reports the auth configuration.
func (s *Service) AuthStatus(ctx context.Context) (auth.Status, error) {
	return s.auth.Status(ctx)
}

// resolveImage resolves rel inside galleryRoot and requires a regular image
// file.
func (s *Service) resolveImage(op, galleryRoot, rel string) (sandbox.Location, os.FileInfo, error) {
	loc, err := s.sandbox.ResolveInGallery(galleryRoot, rel, true)
	if err != nil {
		return sandbox.Location{}, nil, err
	}
	info, err := filesystem.StatWithRetry(loc.Abs, s.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return sandbox.Location{}, nil, apperrors.New(apperrors.KindNotFound, op, rel, "image not found")
		}
		return sandbox.Location{}, nil, apperrors.Wrap(apperrors.KindIO, op, rel, err)
	}
	if !info.Mode().IsRegular() {
		return sandbox.Location{}, nil, apperrors.New(apperrors.KindInvalidOperation, op, rel, "path is not a file")
	}
	if !mediatypes.IsImage(loc.Abs) {
		return sandbox.Location{}, nil, apperrors.New(apperrors.KindUnsupportedFormat, op, rel, "not an image file")
	}
	return loc, info, nil
}

// authorize rejects unauthenticated writes when auth is enabled.
func (s *Service) authorize(ctx context.Context, op, rel, token string) error {
	if !s.auth.IsEnabled() || s.auth.IsAuthenticated(ctx, token) {
		return nil
	}
	return apperrors.New(apperrors.KindUnauthorized, op, rel, "")
}

func nonNil(folders []indexer.FolderEntry) []indexer.FolderEntry {
	if folders == nil {
		return []indexer.FolderEntry{}
	}
	return folders
}
