package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/media"
	"echo-viewer/internal/metrics"
	"echo-viewer/internal/transform"
)

// FileInfo describes one image file.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// RealPath is the absolute location on the server. It is only filled in
	// for authenticated callers or when auth is disabled.
	RealPath  string  `json:"real_path,omitempty"`
	Size      int64   `json:"size"`
	SizeHuman string  `json:"size_human"`
	Modified  float64 `json:"modified"`
}

// EditRequest is an ordered edit of one image.
type EditRequest struct {
	Path       string
	Operations []transform.Operation
	Prefix     string
	Suffix     string
}

// Delete removes the image rel inside galleryRoot. token is the caller's
// session token, consulted only when auth is enabled.
func (s *Service) Delete(ctx context.Context, token, galleryRoot, rel string) (err error) {
	defer func() { metrics.DeletesTotal.WithLabelValues(outcome(err)).Inc() }()

	if err := s.authorize(ctx, "delete", rel, token); err != nil {
		metrics.AuthRejectionsTotal.Inc()
		return err
	}

	loc, _, err := s.resolveImage("delete", galleryRoot, rel)
	if err != nil {
		return err
	}
	if err := s.checkWritable("delete", loc.Abs, rel); err != nil {
		return err
	}

	if err := os.Remove(loc.Abs); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return apperrors.New(apperrors.KindNotFound, "delete", rel, "file not found")
		case errors.Is(err, os.ErrPermission):
			return apperrors.Wrap(apperrors.KindPermissionDenied, "delete", rel, err)
		}
		return apperrors.Wrap(apperrors.KindIO, "delete", rel, err)
	}

	logging.Info("Deleted %s", loc.Rel)
	return nil
}

// EditAndSave applies req.Operations to the image and saves the result
// next to it under a fresh name. It returns the new path relative to the
// gallery root. The source file is never modified. Operations with no net
// effect save a byte-for-byte copy of the source.
func (s *Service) EditAndSave(ctx context.Context, token, galleryRoot string, req EditRequest) (_ string, err error) {
	defer func() { metrics.EditSavesTotal.WithLabelValues(outcome(err)).Inc() }()

	if err := s.authorize(ctx, "edit", req.Path, token); err != nil {
		metrics.AuthRejectionsTotal.Inc()
		return "", err
	}

	policy := transform.NamingPolicy{Prefix: req.Prefix, Suffix: req.Suffix}
	if err := policy.Validate(); err != nil {
		return "", err
	}
	for _, op := range req.Operations {
		if err := op.Validate(); err != nil {
			return "", err
		}
	}

	loc, _, err := s.resolveImage("edit", galleryRoot, req.Path)
	if err != nil {
		return "", err
	}
	if err := s.checkWritable("edit", loc.Abs, req.Path); err != nil {
		return "", err
	}

	start := time.Now()
	if transform.IsIdentity(req.Operations) {
		out, err := transform.Copy(loc.Base, loc.Rel, policy, s.retry)
		if err != nil {
			return "", err
		}
		logging.Debug("Edit of %s has no net effect, copied as %s", loc.Rel, out)
		return out, nil
	}

	decoded, err := s.decoder.Decode(ctx, loc.Abs, media.ModeFull, 0)
	if err != nil {
		return "", err
	}
	edited, err := transform.Apply(decoded.Image, req.Operations)
	if err != nil {
		return "", err
	}
	out, err := transform.Save(edited, loc.Base, loc.Rel, policy)
	if err != nil {
		return "", err
	}

	logging.Debug("Edit of %s (%d operations) took %v", loc.Rel, len(req.Operations), time.Since(start))
	return out, nil
}

// FileInfo describes rel inside galleryRoot.
func (s *Service) FileInfo(ctx context.Context, token, galleryRoot, rel string) (*FileInfo, error) {
	loc, err := s.sandbox.ResolveInGallery(galleryRoot, rel, true)
	if err != nil {
		return nil, err
	}
	info, err := filesystem.StatWithRetry(loc.Abs, s.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "file info", rel, "file not found")
		}
		return nil, apperrors.Wrap(apperrors.KindIO, "file info", rel, err)
	}

	fi := &FileInfo{
		Name:      info.Name(),
		Path:      loc.Rel,
		Size:      info.Size(),
		SizeHuman: FormatSize(info.Size()),
		Modified:  float64(info.ModTime().UnixNano()) / 1e9,
	}
	if !s.auth.IsEnabled() || s.auth.IsAuthenticated(ctx, token) {
		fi.RealPath = loc.Abs
	}
	return fi, nil
}

// checkWritable fails with PermissionDenied when the directory holding abs
// cannot be modified.
func (s *Service) checkWritable(op, abs, rel string) error {
	if err := s.writable(filepath.Dir(abs)); err != nil {
		logging.Warn("%s %s: directory not writable: %v", op, rel, err)
		return apperrors.New(apperrors.KindPermissionDenied, op, rel, "folder is read-only")
	}
	return nil
}

// FormatSize renders a byte count with one decimal and a binary unit.
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.KindOf(err) == apperrors.KindUnauthorized:
		return "unauthorized"
	}
	return "error"
}
