package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"echo-viewer/internal/gallery"
	"echo-viewer/internal/transform"
)

// EditRequest is the body of POST /api/edit.
type EditRequest struct {
	Path         string                `json:"path"`
	Operations   []transform.Operation `json:"operations"`
	OutputPrefix string                `json:"output_prefix"`
	OutputSuffix *string               `json:"output_suffix"`
	GalleryRoot  string                `json:"gallery_root"`
}

// Browse lists folders under the browse root for the folder picker.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	listing, err := h.gallery.Browse(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing.Folders)
}

// BrowseInfo returns breadcrumbs for the folder picker.
func (h *Handlers) BrowseInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.gallery.BrowseInfo(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}

// ListFolders returns the subfolders of a gallery folder.
func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	listing, err := h.gallery.List(r.Context(), galleryRoot(r), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing.Folders)
}

// ListImages returns the images of a gallery folder.
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	listing, err := h.gallery.List(r.Context(), galleryRoot(r), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing.Images)
}

// GetImage serves an image, a thumbnail or a scaled view.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	width, okW := queryInt(r, "width")
	height, okH := queryInt(r, "height")
	if !okW || !okH {
		writeJSONError(w, "width and height must be non-negative integers", http.StatusBadRequest)
		return
	}
	opts := gallery.FetchOptions{
		Thumbnail: queryBool(r, "thumbnail"),
		Width:     width,
		Height:    height,
	}

	img, err := h.gallery.FetchImage(r.Context(), galleryRoot(r), mux.Vars(r)["path"], opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	if _, err := w.Write(img.Data); err != nil {
		writeFailed(r, err)
	}
}

// Edit applies operations to an image and saves the result as a new file.
func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	root := req.GalleryRoot
	if root == "" {
		root = galleryRoot(r)
	}
	editReq := gallery.EditRequest{
		Path:       req.Path,
		Operations: req.Operations,
		Prefix:     req.OutputPrefix,
		Suffix:     transform.DefaultSuffix,
	}
	if req.OutputSuffix != nil {
		editReq.Suffix = *req.OutputSuffix
	}

	out, err := h.gallery.EditAndSave(r.Context(), sessionToken(r), root, editReq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"success": true, "output_path": out})
}

// FileInfo describes one file.
func (h *Handlers) FileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.gallery.FileInfo(r.Context(), sessionToken(r), galleryRoot(r), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}

// Delete removes an image file.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if err := h.gallery.Delete(r.Context(), sessionToken(r), galleryRoot(r), rel); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"success": true, "deleted": rel})
}
