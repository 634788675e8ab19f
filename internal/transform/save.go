package transform

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/media"
	"echo-viewer/internal/mediatypes"
	"echo-viewer/internal/sandbox"
)

// DefaultSuffix is appended to edited files when the caller names neither a
// prefix nor a suffix.
const DefaultSuffix = "_edited"

// maxNameAttempts bounds the "_N" disambiguator search.
const maxNameAttempts = 10000

// NamingPolicy names the file an edit is saved to:
// Prefix + stem + Suffix + ext, then Prefix + stem + Suffix + "_N" + ext
// for N = 1, 2, ... while the name is taken.
type NamingPolicy struct {
	Prefix string
	Suffix string
}

// Validate rejects affixes that could name a file outside the source's
// directory.
func (p NamingPolicy) Validate() error {
	if strings.HasPrefix(p.Prefix, ".") {
		return apperrors.New(apperrors.KindInvalidOperation, "edit", "", "prefix must not start with '.'")
	}
	for _, s := range []string{p.Prefix, p.Suffix} {
		if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") || strings.ContainsRune(s, 0) {
			return apperrors.New(apperrors.KindInvalidOperation, "edit", "",
				"prefix and suffix must not contain path separators or '..'")
		}
	}
	return nil
}

func (p NamingPolicy) withDefaults() NamingPolicy {
	if p.Prefix == "" && p.Suffix == "" {
		p.Suffix = DefaultSuffix
	}
	return p
}

// Name returns the n-th candidate for a source file name and output
// extension.
func (p NamingPolicy) Name(source, ext string, n int) string {
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	if n == 0 {
		return p.Prefix + stem + p.Suffix + ext
	}
	return fmt.Sprintf("%s%s%s_%d%s", p.Prefix, stem, p.Suffix, n, ext)
}

// OutputExtension returns the extension an edit of source is saved with.
// Formats the encoder supports keep their extension; RAW, SVG, WebP and ICO
// are saved as lossless PNG.
func OutputExtension(source string) string {
	ext := filepath.Ext(source)
	if mediatypes.IsRaw(source) || mediatypes.IsSVG(source) {
		return ".png"
	}
	switch mediatypes.Ext(source) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return ext
	}
	return ".png"
}

// Save encodes img next to the source file srcRel (relative to base) under
// the first free name from policy and returns the new file's path relative
// to base. The source is never written.
func Save(img image.Image, base, srcRel string, policy NamingPolicy) (string, error) {
	t, policy, err := locate(base, srcRel, policy)
	if err != nil {
		return "", err
	}

	ext := OutputExtension(t.name)
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnsupportedFormat, "edit", srcRel, err)
	}
	if format == imaging.JPEG {
		img = media.Flatten(img)
	}

	return t.publish(policy, ext, func(w io.Writer) error {
		return imaging.Encode(w, img, format, imaging.JPEGQuality(media.FullJPEGQuality))
	})
}

// Copy publishes the source file's bytes unchanged under the first free
// name from policy, keeping the source extension. It is how an edit with
// no net effect is saved: nothing is re-encoded, so the copy decodes
// exactly like the source.
func Copy(base, srcRel string, policy NamingPolicy, retry filesystem.RetryConfig) (string, error) {
	t, policy, err := locate(base, srcRel, policy)
	if err != nil {
		return "", err
	}

	return t.publish(policy, filepath.Ext(t.name), func(w io.Writer) error {
		f, err := filesystem.OpenWithRetry(t.src, retry)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}

// target is a canonical source file and the directory its output goes to.
type target struct {
	srcRel   string
	realBase string
	relSrc   string
	src      string
	dir      string
	name     string
}

func locate(base, srcRel string, policy NamingPolicy) (target, NamingPolicy, error) {
	if err := policy.Validate(); err != nil {
		return target{}, policy, err
	}
	policy = policy.withDefaults()

	src, err := sandbox.Resolve(base, srcRel, true)
	if err != nil {
		return target{}, policy, err
	}
	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return target{}, policy, apperrors.Wrap(apperrors.KindIO, "edit", srcRel, err)
	}
	relSrc, err := sandbox.Rel(realBase, src)
	if err != nil {
		return target{}, policy, err
	}

	// The directory is re-resolved so a swapped-in symlink is caught.
	relDir := path.Dir(relSrc)
	if relDir == "." {
		relDir = ""
	}
	dir, err := sandbox.Resolve(realBase, relDir, true)
	if err != nil {
		return target{}, policy, err
	}
	if dir != filepath.Dir(src) {
		return target{}, policy, apperrors.New(apperrors.KindPathEscape, "edit", srcRel, "")
	}

	return target{
		srcRel:   srcRel,
		realBase: realBase,
		relSrc:   relSrc,
		src:      src,
		dir:      dir,
		name:     filepath.Base(src),
	}, policy, nil
}

// publish writes fill's output under the first free candidate name and
// returns it relative to the base. A non-empty affix keeps every candidate
// distinct from the source.
func (t target) publish(policy NamingPolicy, ext string, fill func(w io.Writer) error) (string, error) {
	candidate := func(n int) string {
		return policy.Name(t.name, ext, n)
	}

	final, err := filesystem.WriteUnique(t.dir, candidate, maxNameAttempts, fill)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", apperrors.Wrap(apperrors.KindPermissionDenied, "edit", t.srcRel, err)
		}
		return "", apperrors.Wrap(apperrors.KindIO, "edit", t.srcRel, err)
	}

	rel, err := sandbox.Rel(t.realBase, final)
	if err == nil {
		_, err = sandbox.Resolve(t.realBase, rel, true)
	}
	if err != nil {
		os.Remove(final)
		return "", err
	}

	logging.Info("Saved edit of %s as %s", t.relSrc, rel)
	return rel, nil
}
