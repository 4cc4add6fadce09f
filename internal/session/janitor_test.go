package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, clock := newTestStore(Options{MaxAge: time.Minute})
	s.Create()
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewJanitor(s, 5*time.Millisecond).Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for s.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("janitor did not sweep the expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestNewJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(NewStore(testSchemas, Options{}), 0)
	if j.interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", j.interval)
	}
}
