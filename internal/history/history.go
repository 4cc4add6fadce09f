// Package history stores the records shown in the report history list.
package history

import (
	"context"
	"sync"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps a single List call.
const MaxListLimit = 500

// Recorder persists history records and lists the newest first.
type Recorder interface {
	Record(ctx context.Context, rec core.HistoryRecord) error
	List(ctx context.Context, limit int) ([]core.HistoryRecord, error)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// Memory is an in-process Recorder for development and tests.
type Memory struct {
	mu      sync.RWMutex
	records []core.HistoryRecord
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends rec.
func (m *Memory) Record(_ context.Context, rec core.HistoryRecord) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

// List returns up to limit records, newest first.
func (m *Memory) List(_ context.Context, limit int) ([]core.HistoryRecord, error) {
	limit = clampLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.records)
	if limit > n {
		limit = n
	}
	out := make([]core.HistoryRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
