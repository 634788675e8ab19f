package indexer

import "echo-viewer/internal/mediatypes"

// FolderEntry is a subfolder of a listed directory.
type FolderEntry struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	HasImages     bool   `json:"has_images"`
	HasSubfolders bool   `json:"has_subfolders"`
	// Thumbnail is the path of the folder's lexicographically first image,
	// empty when it has none.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ImageEntry is an image file of a listed directory.
type ImageEntry struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Kind  mediatypes.Kind `json:"kind"`
	Size  int64           `json:"size"`
	IsRaw bool            `json:"is_raw"`
}

// Breadcrumb is one ancestor segment of a path.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
