package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"echo-viewer/internal/logging"
	"echo-viewer/internal/metrics"
)

// Config holds memory monitor thresholds.
type Config struct {
	// MemoryLimitBytes is the limit usage is measured against
	// (0 = use GOMEMLIMIT).
	MemoryLimitBytes int64

	// HighWaterMark is the usage ratio at which a pause is lifted.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which new decodes pause.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor samples heap usage and holds back new decodes while usage is
// critical. A nil *Monitor never pauses.
type Monitor struct {
	config Config
	limit  int64

	// readAlloc is replaced in tests.
	readAlloc func() uint64

	mu       sync.RWMutex
	current  uint64
	paused   bool
	resumeCh chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMonitor creates a monitor. Without an explicit limit it uses
// GOMEMLIMIT; with neither, it never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, decode backpressure disabled")
	} else {
		logging.Info("Memory monitor limit: %s", formatBytes(limit))
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		resumeCh:  make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins periodic sampling. It is a no-op without a limit.
func (m *Monitor) Start() {
	if m == nil || m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) check() {
	alloc := m.readAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit == 0 {
		return
	}
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing new decodes", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming decodes", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumeCh)
		m.resumeCh = make(chan struct{})
	}
}

// WaitIfPaused returns immediately unless decoding is paused, in which case
// it blocks until memory recovers, the monitor stops or ctx is done.
func (m *Monitor) WaitIfPaused(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	ch := m.resumeCh
	m.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-m.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether new decodes are being held back.
func (m *Monitor) IsPaused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled usage ratio, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m == nil || m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
