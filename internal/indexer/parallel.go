package indexer

import (
	"sync"

	"echo-viewer/internal/logging"
	"echo-viewer/internal/mediatypes"
)

// summarize builds a FolderEntry for every dir, scanning up to idx.workers
// folders at once. Results keep the order of dirs.
func (idx *Indexer) summarize(base, parentRel string, dirs []child) []FolderEntry {
	folders := make([]FolderEntry, len(dirs))
	if len(dirs) == 0 {
		return folders
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(idx.workers, len(dirs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				folders[i] = idx.summarizeOne(base, parentRel, dirs[i])
			}
		}()
	}
	for i := range dirs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return folders
}

// summarizeOne does the shallow scan of a single child folder. A folder
// that cannot be read is still listed, just without a summary.
func (idx *Indexer) summarizeOne(base, parentRel string, dir child) FolderEntry {
	rel := join(parentRel, dir.name)
	entry := FolderEntry{Name: dir.name, Path: rel}

	children, err := idx.scan(base, dir.abs, "summarize_folder")
	if err != nil {
		logging.Warn("Failed to scan folder %s: %v", rel, err)
		return entry
	}
	for _, c := range children {
		switch {
		case c.isDir:
			entry.HasSubfolders = true
		case mediatypes.IsImage(c.name):
			if !entry.HasImages {
				entry.HasImages = true
				entry.Thumbnail = join(rel, c.name)
			}
		}
		if entry.HasImages && entry.HasSubfolders {
			break
		}
	}
	return entry
}
