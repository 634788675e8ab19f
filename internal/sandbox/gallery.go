package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"echo-viewer/internal/apperrors"
)

// Sandbox binds resolution to a fixed BrowseRoot. It holds no mutable state
// and never caches a resolution; every call re-reads the filesystem.
type Sandbox struct {
	browseRoot     string
	defaultGallery string
}

// Location is a resolved path together with the base it was confined to.
type Location struct {
	// Base is the canonical gallery (or browse) root.
	Base string
	// Abs is the canonical absolute path.
	Abs string
	// Rel is Abs relative to Base in slash form.
	Rel string
}

// New creates a Sandbox rooted at browseRoot, which must be an existing
// directory. defaultGallery, if non-empty, is used when a request names no
// gallery root.
func New(browseRoot, defaultGallery string) (*Sandbox, error) {
	abs, err := filepath.Abs(browseRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve browse root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("browse root is not accessible: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("failed to stat browse root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("browse root %s is not a directory", real)
	}
	return &Sandbox{browseRoot: real, defaultGallery: defaultGallery}, nil
}

// BrowseRoot returns the canonical browse root.
func (s *Sandbox) BrowseRoot() string {
	return s.browseRoot
}

// ResolveBrowse resolves rel against the browse root (folder picker).
func (s *Sandbox) ResolveBrowse(rel string) (Location, error) {
	abs, err := Resolve(s.browseRoot, rel, true)
	if err != nil {
		return Location{}, err
	}
	r, err := Rel(s.browseRoot, abs)
	if err != nil {
		return Location{}, err
	}
	return Location{Base: s.browseRoot, Abs: abs, Rel: r}, nil
}

// GalleryBase validates a client-held gallery root and returns its canonical
// absolute path. The root is re-validated on every call.
func (s *Sandbox) GalleryBase(galleryRoot string) (string, error) {
	if galleryRoot == "" {
		galleryRoot = s.defaultGallery
	}
	if galleryRoot == "" {
		return "", apperrors.New(apperrors.KindInvalidOperation, "gallery", "",
			"no gallery selected, please select a folder first")
	}

	base, err := Resolve(s.browseRoot, galleryRoot, true)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(base)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, "gallery", galleryRoot, err)
	}
	if !info.IsDir() {
		return "", apperrors.New(apperrors.KindInvalidOperation, "gallery", galleryRoot, "gallery root is not a folder")
	}
	return base, nil
}

// ResolveInGallery resolves rel inside the named gallery root.
func (s *Sandbox) ResolveInGallery(galleryRoot, rel string, mustExist bool) (Location, error) {
	base, err := s.GalleryBase(galleryRoot)
	if err != nil {
		return Location{}, err
	}
	abs, err := Resolve(base, rel, mustExist)
	if err != nil {
		return Location{}, err
	}
	r, err := Rel(base, abs)
	if err != nil {
		return Location{}, err
	}
	return Location{Base: base, Abs: abs, Rel: r}, nil
}
