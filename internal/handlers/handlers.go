package handlers

import (
	"echo-viewer/internal/auth"
	"echo-viewer/internal/gallery"
)

// Handlers adapts gallery.Service and auth.Service to HTTP.
type Handlers struct {
	gallery *gallery.Service
	auth    *auth.Service
}

// New creates Handlers. authSvc may be nil, meaning auth is disabled.
func New(svc *gallery.Service, authSvc *auth.Service) *Handlers {
	if authSvc == nil {
		authSvc = auth.Disabled()
	}
	return &Handlers{gallery: svc, auth: authSvc}
}
