// Package auth decides whether a caller may modify the gallery.
//
// Authentication is optional. When disabled, every caller is treated as
// authenticated and the database is never opened. When enabled, a single
// password is configured once through Setup, and Login issues a session
// token that the HTTP layer carries in the echo_session cookie.
package auth
