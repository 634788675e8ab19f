package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"echo-viewer/internal/logging"
)

// TempPrefix marks in-progress writes. Listings hide dot-files, so a
// temporary file is never shown as an image.
const TempPrefix = ".echo-"

// ErrNoFreeName is returned by WriteUnique when every candidate name exists.
var ErrNoFreeName = errors.New("no free file name")

// WriteUnique writes the output of fill to a new file in dir named by the
// first candidate(n), n = 0, 1, ..., that does not exist yet, and returns its
// absolute path.
//
// The data is written to a temporary file in dir and fsynced, then published
// with a hard link, which fails instead of overwriting when the name was
// taken concurrently. Readers therefore never see a partial file, and no
// existing file is ever replaced. On filesystems without hard links the
// final file is created with O_EXCL and filled from the temporary copy.
func WriteUnique(dir string, candidate func(n int) string, maxAttempts int, fill func(w io.Writer) error) (string, error) {
	start := time.Now()
	tmp, err := writeTemp(dir, fill)
	if obs := observe(); obs != nil {
		obs.ObserveOperation(defaultResolver.Resolve(dir), "write", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.Warn("Failed to remove temporary file %s: %v", tmp, rmErr)
		}
	}()

	for n := 0; n < maxAttempts; n++ {
		final := filepath.Join(dir, candidate(n))
		err := publish(tmp, final)
		if err == nil {
			return final, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", err
	}
	return "", ErrNoFreeName
}

func writeTemp(dir string, fill func(w io.Writer) error) (string, error) {
	name := filepath.Join(dir, TempPrefix+uuid.NewString()+".tmp")
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// publish makes tmp visible as final without replacing an existing file.
func publish(tmp, final string) error {
	err := os.Link(tmp, final)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return err
	}
	logging.Debug("Hard link unavailable for %s (%v), falling back to exclusive create", final, err)
	return copyExclusive(tmp, final)
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
