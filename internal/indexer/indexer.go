package indexer

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/mediatypes"
	"echo-viewer/internal/metrics"
	"echo-viewer/internal/sandbox"
	"echo-viewer/internal/workers"
)

// DefaultRootLabel names the root breadcrumb.
const DefaultRootLabel = "root"

// Options configures an Indexer.
type Options struct {
	// RootLabel names the root breadcrumb (default "root").
	RootLabel string
	// Workers bounds concurrent child-folder scans (default: workers.ForIO(8)).
	Workers int
	Retry   filesystem.RetryConfig
}

// Indexer lists folders and images beneath a sandboxed base. Every call
// reads the filesystem; nothing is cached.
type Indexer struct {
	rootLabel string
	workers   int
	retry     filesystem.RetryConfig
}

// New creates an Indexer.
func New(opts Options) *Indexer {
	if opts.RootLabel == "" {
		opts.RootLabel = DefaultRootLabel
	}
	if opts.Workers <= 0 {
		opts.Workers = workers.ForIO(8)
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	return &Indexer{rootLabel: opts.RootLabel, workers: opts.Workers, retry: opts.Retry}
}

// child is a directory entry that survived filtering.
type child struct {
	name  string
	abs   string
	isDir bool
	info  os.FileInfo
}

// ListFolders returns the visible subfolders of rel within base, sorted by
// name, each summarized by a shallow scan.
func (idx *Indexer) ListFolders(base, rel string) (folders []FolderEntry, err error) {
	defer observe("list_folders", time.Now(), &err, func() int { return len(folders) })

	dir, err := idx.open(base, rel)
	if err != nil {
		return nil, err
	}
	children, err := idx.scan(base, dir.Abs, "list_folders")
	if err != nil {
		return nil, err
	}

	var dirs []child
	for _, c := range children {
		if c.isDir {
			dirs = append(dirs, c)
		}
	}
	return idx.summarize(base, dir.Rel, dirs), nil
}

// ListImages returns the image files of rel within base, sorted by name.
func (idx *Indexer) ListImages(base, rel string) (images []ImageEntry, err error) {
	defer observe("list_images", time.Now(), &err, func() int { return len(images) })

	dir, err := idx.open(base, rel)
	if err != nil {
		return nil, err
	}
	children, err := idx.scan(base, dir.Abs, "list_images")
	if err != nil {
		return nil, err
	}

	images = []ImageEntry{}
	for _, c := range children {
		if c.isDir || !mediatypes.IsImage(c.name) {
			continue
		}
		images = append(images, ImageEntry{
			Name:  c.name,
			Path:  join(dir.Rel, c.name),
			Kind:  mediatypes.KindOf(c.name),
			Size:  c.info.Size(),
			IsRaw: mediatypes.IsRaw(c.name),
		})
	}
	return images, nil
}

// BrowseFolders lists the subfolders of rel within browseRoot for choosing
// a gallery root. It is ListFolders under another name so metrics and logs
// tell the two apart.
func (idx *Indexer) BrowseFolders(browseRoot, rel string) (folders []FolderEntry, err error) {
	defer observe("browse_folders", time.Now(), &err, func() int { return len(folders) })

	dir, err := idx.open(browseRoot, rel)
	if err != nil {
		return nil, err
	}
	children, err := idx.scan(browseRoot, dir.Abs, "browse_folders")
	if err != nil {
		return nil, err
	}

	var dirs []child
	for _, c := range children {
		if c.isDir {
			dirs = append(dirs, c)
		}
	}
	return idx.summarize(browseRoot, dir.Rel, dirs), nil
}

// Breadcrumbs splits rel into its ancestor segments, each carrying the
// cumulative path. The root segment is always first.
func (idx *Indexer) Breadcrumbs(rel string) []Breadcrumb {
	crumbs := []Breadcrumb{{Name: idx.rootLabel, Path: ""}}

	cleaned, err := sandbox.Clean(rel)
	if err != nil || cleaned == "" {
		return crumbs
	}

	current := ""
	for _, part := range strings.Split(cleaned, "/") {
		current = join(current, part)
		crumbs = append(crumbs, Breadcrumb{Name: part, Path: current})
	}
	return crumbs
}

// open resolves rel within base and checks it is a directory.
func (idx *Indexer) open(base, rel string) (sandbox.Location, error) {
	abs, err := sandbox.Resolve(base, rel, true)
	if err != nil {
		return sandbox.Location{}, err
	}
	info, err := filesystem.StatWithRetry(abs, idx.retry)
	if err != nil {
		return sandbox.Location{}, apperrors.Wrap(apperrors.KindIO, "list", rel, err)
	}
	if !info.IsDir() {
		return sandbox.Location{}, apperrors.New(apperrors.KindInvalidOperation, "list", rel, "not a folder")
	}

	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return sandbox.Location{}, apperrors.Wrap(apperrors.KindIO, "list", rel, err)
	}
	r, err := sandbox.Rel(realBase, abs)
	if err != nil {
		return sandbox.Location{}, err
	}
	return sandbox.Location{Base: realBase, Abs: abs, Rel: r}, nil
}

// scan reads dir and returns its visible children sorted by name. Hidden
// entries, entries that cannot be read and symlinks leading outside base are
// dropped.
func (idx *Indexer) scan(base, dir, op string) ([]child, error) {
	entries, err := filesystem.ReadDirWithRetry(dir, idx.retry)
	if err != nil {
		if os.IsPermission(err) {
			return nil, apperrors.Wrap(apperrors.KindPermissionDenied, op, "", err)
		}
		return nil, apperrors.Wrap(apperrors.KindIO, op, "", err)
	}

	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, op, "", err)
	}

	children := make([]child, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		c, ok := idx.inspect(realBase, dir, e, op)
		if ok {
			children = append(children, c)
		}
	}
	slices.SortFunc(children, func(a, b child) int { return strings.Compare(a.name, b.name) })
	return children, nil
}

func (idx *Indexer) inspect(realBase, dir string, e os.DirEntry, op string) (child, bool) {
	abs := filepath.Join(dir, e.Name())

	if e.Type()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(abs)
		if err != nil {
			skip(op, abs, err)
			return child{}, false
		}
		if !sandbox.Within(realBase, target) {
			logging.Debug("Skipping %s: symlink leads outside the root", e.Name())
			metrics.ScannerEntriesSkipped.WithLabelValues(op).Inc()
			return child{}, false
		}
		info, err := os.Stat(target)
		if err != nil {
			skip(op, abs, err)
			return child{}, false
		}
		return child{name: e.Name(), abs: target, isDir: info.IsDir(), info: info}, true
	}

	info, err := e.Info()
	if err != nil {
		skip(op, abs, err)
		return child{}, false
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return child{}, false
	}
	return child{name: e.Name(), abs: abs, isDir: info.IsDir(), info: info}, true
}

func skip(op, path string, err error) {
	logging.Warn("Skipping unreadable entry %s: %v", path, err)
	metrics.ScannerEntriesSkipped.WithLabelValues(op).Inc()
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

func observe(op string, start time.Time, err *error, count func() int) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.ScannerOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.ScannerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if *err == nil {
		metrics.ScannerItemsReturned.WithLabelValues(op).Observe(float64(count()))
	}
}
