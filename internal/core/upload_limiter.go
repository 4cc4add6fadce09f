package core

// upload_limiter.go bounds how many uploads are read and parsed at once.
//
// Each upload holds its whole file in memory while it is parsed, so the
// server admits at most maxConcurrent of them. Callers beyond that wait up to
// maxWait for a free slot and then fail with ErrTooManyUploads.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when no upload slot frees up within the wait time.
var ErrTooManyUploads = errors.New("too many concurrent uploads, rate limit reached")

const (
	DefaultMaxConcurrentUploads = 4
	DefaultMaxUploadWait        = 10 * time.Second
)

// UploadLimiter is a counting semaphore for upload processing.
type UploadLimiter struct {
	sem     chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewUploadLimiter returns a limiter admitting maxConcurrent uploads.
// Non-positive arguments select the defaults.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxUploadWait
	}
	return &UploadLimiter{
		sem:     make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. Every successful Acquire must be paired with Release.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release returns a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	<-l.sem
}

// Do runs fn while holding a slot.
func (l *UploadLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Active returns the number of uploads currently holding a slot.
func (l *UploadLimiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the maximum number of concurrent uploads.
func (l *UploadLimiter) Capacity() int {
	return cap(l.sem)
}

// WaitForDrain blocks until no upload holds a slot or ctx is done.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
