package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route. staticDir, if non-empty, is served
// for everything else.
func NewRouter(h *Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.HandleFunc("/status", h.AuthStatus).Methods("GET")
	authRoutes.HandleFunc("/setup", h.Setup).Methods("POST")
	authRoutes.HandleFunc("/login", h.Login).Methods("POST")
	authRoutes.HandleFunc("/logout", h.Logout).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/browse", h.Browse).Methods("GET")
	api.HandleFunc("/browse-info", h.BrowseInfo).Methods("GET")
	api.HandleFunc("/folders", h.ListFolders).Methods("GET")
	api.HandleFunc("/images", h.ListImages).Methods("GET")
	api.HandleFunc("/image/{path:.*}", h.GetImage).Methods("GET")
	api.HandleFunc("/edit", h.Edit).Methods("POST")
	api.HandleFunc("/file-info", h.FileInfo).Methods("GET")
	api.HandleFunc("/delete", h.Delete).Methods("DELETE")

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}
