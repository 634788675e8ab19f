// Package handlers exposes the gallery and auth services over HTTP.
//
// Handlers only decode requests, call into gallery.Service or auth.Service,
// and encode results. Errors carry an apperrors kind that StatusFor maps to
// a status code; the body is {"detail": message} with a message that never
// contains server paths.
//
// The selected gallery root travels with every request in the
// X-Gallery-Root header or the gallery_root query parameter, and the
// session token in the echo_session cookie.
package handlers
