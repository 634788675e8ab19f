// Package metrics provides Prometheus instrumentation for echo-viewer.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "echo_viewer_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, route template and status
//   - HTTPRequestDuration: request latency by method and route template
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Sandbox Metrics
//
//   - SandboxRejectionsTotal: paths refused, by reason (lexical, symlink, dangling)
//
// ## Scanner Metrics
//
// Gallery listings are computed on demand from the filesystem:
//   - ScannerOperationsTotal, ScannerOperationDuration
//   - ScannerItemsReturned: entries returned per listing
//   - ScannerEntriesSkipped: entries dropped because they could not be read
//
// ## Codec and Thumbnail Metrics
//
//   - DecodeTotal, DecodeDuration: decodes by kind (raster, animated, vector, raw)
//   - RawPreviewTotal: whether a RAW thumbnail came from the embedded preview
//   - DecodeWorkersBusy: decode slots in use
//   - ThumbnailCacheHits, ThumbnailCacheMisses, ThumbnailCacheShared
//   - ThumbnailCacheEvictions, ThumbnailCacheSize, ThumbnailCacheCount
//   - ThumbnailGenerationDuration, ThumbnailGenerationsTotal
//
// ## Edit Metrics
//
//   - EditSavesTotal, EditOperationsTotal, DeletesTotal
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver,
// labelled by volume ("browse", "database") and operation. Retry metrics
// track recovery from NFS stale file handles.
//
// ## Authentication and Memory Metrics
//
//   - AuthAttemptsTotal, AuthRejectionsTotal
//   - MemoryUsageRatio, MemoryPaused
//
// # Usage
//
// Call InitializeMetrics once at startup so every label combination is
// exported before it is first incremented:
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//
// The metrics endpoint is served on a separate port by main.
package metrics
