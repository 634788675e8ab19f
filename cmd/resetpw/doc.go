// Command resetpw manages the echo-viewer password from the command line.
//
// Usage:
//
//	resetpw reset    Set a new password. All sessions are invalidated.
//	resetpw status   Report whether a password is configured.
//
// Initial setup happens in the web interface; reset refuses to run before
// a password exists.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /app/data)
package main
