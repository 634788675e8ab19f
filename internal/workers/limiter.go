package workers

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many expensive jobs (image decodes) run at once.
// Waiters are served in FIFO order and give up when their context ends.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
	busy atomic.Int64
}

// NewLimiter returns a Limiter admitting n concurrent jobs (minimum 1).
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.busy.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.busy.Add(-1)
	l.sem.Release(1)
}

// Size is the number of slots.
func (l *Limiter) Size() int { return l.size }

// Busy is the number of slots in use.
func (l *Limiter) Busy() int { return int(l.busy.Load()) }
