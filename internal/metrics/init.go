package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// series is exported from the first scrape. Call once at startup.
func InitializeMetrics() {
	for _, reason := range []string{"lexical", "symlink", "dangling"} {
		SandboxRejectionsTotal.WithLabelValues(reason)
	}

	for _, op := range []string{"folders", "images", "browse", "breadcrumbs"} {
		ScannerOperationsTotal.WithLabelValues(op, "success")
		ScannerOperationsTotal.WithLabelValues(op, "error")
		ScannerOperationDuration.WithLabelValues(op)
		ScannerEntriesSkipped.WithLabelValues(op)
	}

	kinds := []string{"raster", "animated", "vector", "raw"}
	for _, kind := range kinds {
		DecodeTotal.WithLabelValues(kind, "success")
		DecodeTotal.WithLabelValues(kind, "error")
		DecodeDuration.WithLabelValues(kind, "full")
		DecodeDuration.WithLabelValues(kind, "thumbnail")
		ThumbnailGenerationDuration.WithLabelValues(kind)
		ThumbnailGenerationsTotal.WithLabelValues(kind, "success")
		ThumbnailGenerationsTotal.WithLabelValues(kind, "error")
	}

	for _, source := range []string{"embedded", "full"} {
		RawPreviewTotal.WithLabelValues(source)
	}

	for _, status := range []string{"success", "error", "unauthorized"} {
		EditSavesTotal.WithLabelValues(status)
		DeletesTotal.WithLabelValues(status)
	}
	for _, op := range []string{"rotate", "flip", "crop", "resize"} {
		EditOperationsTotal.WithLabelValues(op)
	}

	for _, status := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"create_user", "validate_password", "create_session", "validate_session", "clean_expired_sessions", "update_password"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	volumes := []string{"browse", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "write", "stat", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
