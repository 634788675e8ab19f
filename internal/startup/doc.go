// Package startup loads configuration and produces the startup and shutdown
// log sections.
//
// # Configuration
//
// [LoadConfig] reads the environment:
//
//   - BROWSE_ROOT: directory that bounds all access (default: /mnt)
//   - GALLERY_ROOT: default gallery, relative to BROWSE_ROOT or absolute
//     beneath it (default: none, chosen by the client)
//   - DATABASE_DIR: sqlite directory, used when AUTH_ENABLED (default: /app/data)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics port (default: 9090)
//   - METRICS_ENABLED: serve metrics (default: true)
//   - AUTH_ENABLED: require a session for delete and edit (default: false)
//   - SESSION_EXPIRY_HOURS: session lifetime (default: 168)
//   - THUMBNAIL_SIZE: default thumbnail bounding box (default: 300)
//   - THUMBNAIL_CACHE_ENTRIES, THUMBNAIL_CACHE_MB: in-memory cache bounds
//     (defaults: 2048 entries, 256 MB)
//   - RAW_PREVIEW_MIN: smallest embedded RAW preview accepted for thumbnails
//     (default: 160)
//   - DECODE_WORKERS: concurrent decodes (default: GOMAXPROCS, max 8)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// Invalid numeric and boolean values fall back to their defaults with a
// warning. A missing BROWSE_ROOT is fatal.
package startup
