// Package main documents the echo-viewer server, whose entry point is the
// main package at the module root.
//
// echo-viewer serves a browser gallery over a directory tree. It lists
// folders and images, renders thumbnails and full views of raster, RAW and
// SVG files, and saves rotated, flipped, cropped or resized copies of an
// image next to the original.
//
// # Application Lifecycle
//
//  1. Configuration: reads environment variables and validates BROWSE_ROOT
//  2. Memory: applies GOMEMLIMIT and starts the decode backpressure monitor
//  3. Codecs: starts libvips for RAW, SVG and ICO; other formats decode in Go
//  4. Authentication (AUTH_ENABLED=true): opens the SQLite session store
//  5. HTTP: registers routes, logging and metrics middleware
//  6. Graceful shutdown on SIGINT/SIGTERM
//
// # Environment Variables
//
//   - BROWSE_ROOT: directory every request is confined to (default: /mnt)
//   - GALLERY_ROOT: gallery used when a request names none
//   - DATABASE_DIR: directory for echo.db (default: /app/data)
//   - PORT: main HTTP server port (default: 8080)
//   - METRICS_PORT: metrics server port (default: 9090)
//   - METRICS_ENABLED: enable the metrics server (default: true)
//   - AUTH_ENABLED: require a session for edits and deletes (default: false)
//   - SESSION_EXPIRY_HOURS: session lifetime (default: 168)
//   - THUMBNAIL_SIZE, THUMBNAIL_CACHE_ENTRIES, THUMBNAIL_CACHE_MB
//   - RAW_PREVIEW_MIN: smallest embedded RAW preview used for thumbnails
//   - LOG_LEVEL: debug, info, warn or error
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o echo-viewer .
package main
