package session

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically removes expired sessions from a Store.
type Janitor struct {
	store    *Store
	interval time.Duration
}

// NewJanitor returns a janitor sweeping store every interval.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{store: store, interval: interval}
}

// Run sweeps until ctx is cancelled. It always returns nil so it can be run
// directly in an errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	slog.Info("session janitor started", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			if n := j.store.Sweep(); n > 0 {
				slog.Info("expired sessions removed",
					"removed", n,
					"remaining", j.store.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
