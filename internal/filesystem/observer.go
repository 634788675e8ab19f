package filesystem

// Observer records filesystem metrics. The metrics package provides the
// implementation; the indirection keeps filesystem free of a metrics import.
type Observer interface {
	// ObserveOperation records duration and error status. volume is the
	// label from the VolumeResolver; operation is "stat", "open",
	// "readdir" or "write".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(op, volume string)
	ObserveRetrySuccess(op, volume string)
	ObserveRetryFailure(op, volume string)
	ObserveRetryDuration(op, volume string, durationSeconds float64)
	ObserveStaleError(op, volume string)
}

// defaultObserver may be nil, in which case nothing is recorded.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
