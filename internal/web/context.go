package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	slotKey
)

// requireSession resolves {sessionID} and rejects unknown or expired sessions.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if _, err := s.sessions.Get(id); err != nil {
			s.respondError(w, r, err, http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSlot resolves {slot} to a core.Slot.
func (s *Server) requireSlot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot, err := core.ParseSlot(chi.URLParam(r, "slot"))
		if err != nil {
			s.respondError(w, r, err, http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), slotKey, slot)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

func slotFrom(ctx context.Context) core.Slot {
	slot, _ := ctx.Value(slotKey).(core.Slot)
	return slot
}
