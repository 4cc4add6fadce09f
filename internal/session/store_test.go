package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

var testSchemas = core.SchemaSet{
	Operational: core.Schema{Required: []string{"route_id"}},
	Base:        core.Schema{Required: []string{"depot_id"}},
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(opts Options) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	s := NewStore(testSchemas, opts)
	s.now = clock.Now
	return s, clock
}

func upload(slot core.Slot, name, content string) func(core.Session) (core.Session, error) {
	return func(sess core.Session) (core.Session, error) {
		next, _, err := sess.Upload(slot, core.NewRawUpload(name, []byte(content)))
		return next, err
	}
}

func TestStore_CreateGet(t *testing.T) {
	s, _ := newTestStore(Options{})

	id := s.Create()
	sess, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.State(core.SlotOperational) != core.SlotEmpty {
		t.Errorf("new session State() = %v, want empty", sess.State(core.SlotOperational))
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s, _ := newTestStore(Options{})

	for _, id := range []string{"", "not-a-uuid", "7b0c5e8e-0f5a-4a8e-9d1c-2b1f3f9a6c11"} {
		if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestStore_UpdateKeepsStateOnError(t *testing.T) {
	s, _ := newTestStore(Options{})
	id := s.Create()

	_, err := s.Update(id, upload(core.SlotOperational, "ops.csv", "wrong\n1\n"))
	if core.KindOf(err) != core.KindMissingColumns {
		t.Fatalf("Update() error = %v, want missing columns", err)
	}

	sess, _ := s.Get(id)
	if sess.Err() == nil {
		t.Error("stored session lost the validation error")
	}
	if f, ok := sess.File(core.SlotOperational); !ok || f.FileName != "ops.csv" {
		t.Errorf("File() = %+v, %v, want ops.csv recorded", f, ok)
	}
}

func TestStore_UpdateBothSlots(t *testing.T) {
	s, _ := newTestStore(Options{})
	id := s.Create()

	if _, err := s.Update(id, upload(core.SlotOperational, "ops.csv", "route_id\n1\n")); err != nil {
		t.Fatalf("Update(operational) error = %v", err)
	}
	sess, err := s.Update(id, upload(core.SlotBase, "base.csv", "depot_id\nD1\n"))
	if err != nil {
		t.Fatalf("Update(base) error = %v", err)
	}
	if !sess.Ready() {
		t.Error("session not ready after both uploads")
	}
}

func TestStore_ParserOption(t *testing.T) {
	s, _ := newTestStore(Options{Parser: core.Parser{Normalizer: core.TextCell}})
	id := s.Create()

	sess, err := s.Update(id, upload(core.SlotOperational, "ops.csv", "route_id\n12\n"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	table, _ := sess.Table(core.SlotOperational)
	if got := table.Records()[0][0]; got != "12" {
		t.Errorf("cell = %q, want untyped 12", got)
	}
}

func TestStore_UpdatesAreSerialized(t *testing.T) {
	s, _ := newTestStore(Options{})
	id := s.Create()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(id, func(sess core.Session) (core.Session, error) {
				next, _, err := sess.BeginRead(core.SlotBase, "base.csv")
				return next, err
			})
		}()
	}
	wg.Wait()

	// Every BeginRead bumped the token once; the last ticket must be current.
	sess, _ := s.Get(id)
	_, ticket, _ := sess.BeginRead(core.SlotBase, "base.csv")
	if ticket.Token != n+1 {
		t.Errorf("token = %d, want %d", ticket.Token, n+1)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(Options{})
	id := s.Create()

	s.Delete(id)
	s.Delete(id)

	if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(id, func(c core.Session) (core.Session, error) { return c, nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newTestStore(Options{MaxAge: time.Hour})

	stale := s.Create()
	clock.Advance(45 * time.Minute)
	fresh := s.Create()
	clock.Advance(30 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if _, err := s.Get(stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session still present: %v", err)
	}
	if _, err := s.Get(fresh); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}
}

func TestStore_AccessExtendsLifetime(t *testing.T) {
	s, clock := newTestStore(Options{MaxAge: time.Hour})
	id := s.Create()

	clock.Advance(50 * time.Minute)
	if _, err := s.Get(id); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	clock.Advance(50 * time.Minute)

	if n := s.Sweep(); n != 0 {
		t.Errorf("Sweep() removed %d recently used sessions", n)
	}
}

func TestStore_EvictsOldestAtCapacity(t *testing.T) {
	s, clock := newTestStore(Options{MaxCount: 2})

	first := s.Create()
	clock.Advance(time.Minute)
	second := s.Create()
	clock.Advance(time.Minute)

	// Touch first so second becomes the least recently used.
	if _, err := s.Get(first); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	third := s.Create()

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.Get(second); !errors.Is(err, ErrNotFound) {
		t.Errorf("second should have been evicted, err = %v", err)
	}
	for _, id := range []string{first, third} {
		if _, err := s.Get(id); err != nil {
			t.Errorf("Get(%s) error = %v", id, err)
		}
	}
}

func TestErrNotFound_UserMessage(t *testing.T) {
	if got := core.MapError(ErrNotFound).Code; got != "SES002" {
		t.Errorf("MapError(ErrNotFound).Code = %q, want SES002", got)
	}
}
