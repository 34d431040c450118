package core

// ingest_limiter.go bounds how many exports are processed at once.
//
// Uploads, CLI runs and directory scans share one limiter, so a burst of
// uploads cannot starve a drop-directory scan of memory or database
// connections. Callers wait up to maxWait for a slot before failing with
// ErrTooManyIngests. WaitForDrain lets shutdown wait for running files.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyIngests is returned when all ingest slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyIngests = errors.New("too many ingests in progress, please try again later")

// DefaultMaxConcurrentIngests is the default limit for parallel ingests.
const DefaultMaxConcurrentIngests = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// IngestLimiter is a counting semaphore over export processing.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	waiting atomic.Int64
}

// NewIngestLimiter allows at most maxConcurrent files in flight.
// Non-positive arguments fall back to the defaults.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. Every successful Acquire
// must be paired with one Release.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
	}

	l.waiting.Add(1)
	defer l.waiting.Add(-1)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrTooManyIngests
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *IngestLimiter) Release() {
	<-l.slots
}

// ActiveCount returns the number of files being processed.
func (l *IngestLimiter) ActiveCount() int {
	return len(l.slots)
}

// MaxConcurrent returns the slot count.
func (l *IngestLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no file is being processed or ctx ends.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// IngestLimiterStatus is a snapshot of the limiter, served by
// GET /api/ingest/status.
type IngestLimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	Waiting       int64 `json:"waiting"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *IngestLimiter) Status() IngestLimiterStatus {
	active := len(l.slots)
	return IngestLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		Waiting:       l.waiting.Load(),
		MaxConcurrent: cap(l.slots),
	}
}
