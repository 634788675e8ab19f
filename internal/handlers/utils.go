package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/auth"
	"echo-viewer/internal/logging"
)

// GalleryRootHeader carries the client's selected gallery root.
const GalleryRootHeader = "X-Gallery-Root"

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"detail": message})
}

// writeError maps err onto a status code and a message safe for clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var appErr *apperrors.Error
	message := "internal error"
	if errors.As(err, &appErr) {
		message = appErr.PublicMessage()
	}

	if status >= http.StatusInternalServerError {
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSONError(w, message, status)
}

// StatusFor returns the HTTP status for an error's kind.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindPathEscape, apperrors.KindPermissionDenied:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case apperrors.KindCorruptFile:
		return http.StatusUnprocessableEntity
	case apperrors.KindInvalidOperation:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// galleryRoot reads the gallery root from the header, falling back to the
// gallery_root query parameter.
func galleryRoot(r *http.Request) string {
	if root := r.Header.Get(GalleryRootHeader); root != "" {
		return root
	}
	return r.URL.Query().Get("gallery_root")
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// queryInt parses a non-negative integer query parameter; absent is 0.
func queryInt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// writeFailed logs a failed body write; the status line is already sent.
func writeFailed(r *http.Request, err error) {
	logging.Debug("%s %s: write failed: %v", r.Method, r.URL.Path, err)
}
