package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Sandbox metrics
var (
	SandboxRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_sandbox_rejections_total",
			Help: "Total number of paths rejected by the sandbox",
		},
		[]string{"reason"}, // "lexical", "symlink", "dangling"
	)
)

// Scanner metrics
var (
	ScannerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_scanner_operations_total",
			Help: "Total number of directory scan operations",
		},
		[]string{"operation", "status"},
	)

	ScannerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_scanner_operation_duration_seconds",
			Help:    "Directory scan duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	ScannerItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_scanner_items_returned",
			Help:    "Number of items returned by scan operations",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)

	ScannerEntriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_scanner_entries_skipped_total",
			Help: "Directory entries skipped because they could not be read",
		},
		[]string{"operation"},
	)
)

// Codec metrics
var (
	DecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_decode_total",
			Help: "Total number of image decodes",
		},
		[]string{"kind", "status"},
	)

	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_decode_duration_seconds",
			Help:    "Image decode duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "mode"},
	)

	RawPreviewTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_raw_preview_total",
			Help: "RAW thumbnail requests by source (embedded preview or full demosaic)",
		},
		[]string{"source"},
	)

	DecodeWorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_decode_workers_busy",
			Help: "Number of decode slots currently in use",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echo_viewer_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echo_viewer_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echo_viewer_thumbnail_cache_shared_total",
			Help: "Misses that joined an in-flight generation instead of decoding",
		},
	)

	ThumbnailCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echo_viewer_thumbnail_cache_evictions_total",
			Help: "Total number of thumbnails evicted from the cache",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail cache in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_thumbnail_cache_count",
			Help: "Number of thumbnails in the cache",
		},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"kind", "status"},
	)
)

// Edit and file operation metrics
var (
	EditSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_edit_saves_total",
			Help: "Total number of edit-and-save requests",
		},
		[]string{"status"},
	)

	EditOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_edit_operations_total",
			Help: "Total number of applied edit operations by type",
		},
		[]string{"type"},
	)

	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_deletes_total",
			Help: "Total number of delete requests",
		},
		[]string{"status"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_filesystem_operation_errors_total",
			Help: "Total number of filesystem operation errors",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after ESTALE",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_filesystem_retry_duration_seconds",
			Help:    "Total time spent retrying a filesystem operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)

	AuthRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echo_viewer_auth_rejections_total",
			Help: "Write operations rejected for lack of a valid session",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_viewer_db_query_total",
			Help: "Total number of account database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_viewer_db_query_duration_seconds",
			Help:    "Account database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_viewer_memory_paused",
			Help: "Whether decoding is paused due to memory pressure (1 = paused)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "echo_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
