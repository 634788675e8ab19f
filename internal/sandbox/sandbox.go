package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/metrics"
)

// Resolve confines candidate, a user-supplied relative path, to base.
//
// base must be an absolute directory. The returned path is canonical: every
// symlink is resolved before the boundary check, so a link inside base that
// points outside it yields ErrPathEscape. With mustExist false, a missing
// leaf (an output target) is resolved through its deepest existing ancestor.
func Resolve(base, candidate string, mustExist bool) (string, error) {
	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindNotFound, "resolve", "", err)
	}

	cleaned, err := Clean(candidate)
	if err != nil {
		reject("lexical", candidate)
		return "", err
	}

	joined := filepath.Join(realBase, filepath.FromSlash(cleaned))

	real, err := filepath.EvalSymlinks(joined)
	switch {
	case err == nil:
	case isNotExist(err) && !mustExist:
		real, err = resolveMissing(joined)
		if err != nil {
			reject("dangling", candidate)
			return "", apperrors.Wrap(apperrors.KindPathEscape, "resolve", candidate, err)
		}
	case isNotExist(err):
		return "", apperrors.New(apperrors.KindNotFound, "resolve", candidate, "not found")
	case errors.Is(err, fs.ErrPermission):
		return "", apperrors.Wrap(apperrors.KindPermissionDenied, "resolve", candidate, err)
	default:
		return "", apperrors.Wrap(apperrors.KindIO, "resolve", candidate, err)
	}

	if !Within(realBase, real) {
		reject("symlink", candidate)
		return "", apperrors.New(apperrors.KindPathEscape, "resolve", candidate, "")
	}

	return real, nil
}

// Clean normalizes a relative path to slash form without a leading slash.
// "" means the base itself. Whitespace is part of a name and is kept.
// Absolute paths, NUL bytes and any path that climbs above its base after
// cleaning are rejected with ErrPathEscape.
func Clean(candidate string) (string, error) {
	if strings.ContainsRune(candidate, 0) {
		return "", apperrors.New(apperrors.KindPathEscape, "resolve", "", "")
	}

	p := candidate
	if filepath.VolumeName(p) != "" {
		return "", apperrors.New(apperrors.KindPathEscape, "resolve", candidate, "")
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", apperrors.New(apperrors.KindPathEscape, "resolve", candidate, "")
	}

	p = path.Clean(p)
	if p == "." {
		return "", nil
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", apperrors.New(apperrors.KindPathEscape, "resolve", candidate, "")
	}
	return p, nil
}

// Within reports whether target equals root or lies beneath it.
// Both paths must already be clean and absolute.
func Within(root, target string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// Rel returns abs relative to base in slash form; "" for base itself.
func Rel(base, abs string) (string, error) {
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, "rel", "", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", apperrors.New(apperrors.KindPathEscape, "rel", "", "")
	}
	return rel, nil
}

// resolveMissing canonicalizes the deepest existing ancestor of p and
// re-appends the missing components. A missing component that is present as
// a dangling symlink is refused: writing through it would land wherever the
// link points.
func resolveMissing(p string) (string, error) {
	var missing []string
	cur := p
	for {
		// Present under Lstat yet unresolvable: a dangling link.
		if _, err := os.Lstat(cur); err == nil {
			return "", errors.New("dangling symlink in path")
		}

		missing = append(missing, filepath.Base(cur))
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", errors.New("no existing ancestor")
		}
		cur = parent

		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real, nil
		}
		if !isNotExist(err) {
			return "", err
		}
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func reject(reason, candidate string) {
	metrics.SandboxRejectionsTotal.WithLabelValues(reason).Inc()
	logging.Warn("Sandbox rejected path %q (%s)", candidate, reason)
}
