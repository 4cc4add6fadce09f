// Package session keeps one ingestion session per visitor for the HTTP host.
//
// Each entry holds a core.Session value guarded by its own mutex, so updates
// to one visitor's session are applied one at a time while other visitors
// proceed in parallel. Entries idle for longer than the maximum age are
// removed by the Janitor; when the store is full the least recently used
// entry is evicted.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

type entry struct {
	mu       sync.Mutex
	sess     core.Session
	lastUsed time.Time
	removed  atomic.Bool
}

// Store maps session ids to core.Session values.
type Store struct {
	schemas  core.SchemaSet
	parser   core.Parser
	maxAge   time.Duration
	maxCount int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Options configure a Store.
type Options struct {
	MaxAge   time.Duration // idle time before a session expires
	MaxCount int           // live sessions before the oldest is evicted
	Parser   core.Parser   // parser for new sessions; the zero value types cells
}

// NewStore returns a store whose sessions validate against schemas.
func NewStore(schemas core.SchemaSet, opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 2 * time.Hour
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 1000
	}
	return &Store{
		schemas:  schemas,
		parser:   opts.Parser,
		maxAge:   opts.MaxAge,
		maxCount: opts.MaxCount,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// Create starts an empty session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxCount {
		s.evictOldestLocked()
	}
	s.entries[id] = &entry{sess: core.NewSession(s.schemas).WithParser(s.parser), lastUsed: now}
	return id
}

// Get returns a snapshot of the session. The snapshot is a value and is not
// affected by later updates.
func (s *Store) Get(id string) (core.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return core.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed.Load() {
		return core.Session{}, ErrNotFound
	}
	e.lastUsed = s.now()
	return e.sess, nil
}

// Update applies fn to the session and stores the session it returns, even
// when fn also returns an error (ingestion failures are part of the state).
// Calls for the same id are serialized.
func (s *Store) Update(id string, fn func(core.Session) (core.Session, error)) (core.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return core.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed.Load() {
		return core.Session{}, ErrNotFound
	}

	next, err := fn(e.sess)
	e.sess = next
	e.lastUsed = s.now()
	return next, err
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		e.removed.Store(true)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the maximum age and returns
// how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	var expired []*entry
	for id, e := range s.entries {
		// An entry whose lock is held is in use and therefore not idle.
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			e.removed.Store(true)
			expired = append(expired, e)
			delete(s.entries, id)
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	return len(expired)
}

func (s *Store) lookup(id string) (*entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// evictOldestLocked drops the least recently used entry. Caller holds s.mu.
func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   *entry
		oldestAt time.Time
	)
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		at := e.lastUsed
		e.mu.Unlock()
		if oldest == nil || at.Before(oldestAt) {
			oldestID, oldest, oldestAt = id, e, at
		}
	}
	if oldest == nil {
		return
	}
	delete(s.entries, oldestID)
	oldest.removed.Store(true)
}
