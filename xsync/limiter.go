// Package xsync provides small concurrency primitives: a counting
// semaphore (Limiter) and a panic-safe goroutine launcher (Go), adapted
// from the teacher's pkg/sync helpers.
package xsync

import "log/slog"

// Limiter restricts the number of concurrent operations to a configured
// maximum.
type Limiter struct {
	semaphore chan struct{}
}

// NewLimiter creates a Limiter allowing at most max concurrent holders.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{semaphore: make(chan struct{}, max)}
}

func (l *Limiter) Acquire() { l.semaphore <- struct{}{} }
func (l *Limiter) Release() { <-l.semaphore }

// TryAcquire acquires a slot without blocking, reporting whether it
// succeeded.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

// Go runs fn in a new goroutine, recovering any panic and logging it
// instead of crashing the process.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", slog.Any("panic", r))
			}
		}()
		fn()
	}()
}
