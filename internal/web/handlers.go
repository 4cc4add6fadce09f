package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/history"
	"github.com/JonMunkholm/fleetdata/internal/logging"
	"github.com/JonMunkholm/fleetdata/internal/report"
	"github.com/JonMunkholm/fleetdata/internal/web/templates"
)

const (
	defaultPreviewRows = 20
	maxPreviewRows     = 500

	// multipartOverhead is the body allowance for form boundaries and headers
	// on top of the file size limit.
	multipartOverhead = 64 * 1024
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// render writes an HTML fragment with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render fragment", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":        "ok",
		"sessions":      s.sessions.Len(),
		"activeUploads": s.uploads.Active(),
	})
}

// handleCreateSession starts a new ingestion session for a visitor.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.Create()
	logging.ForSession(r.Context(), id, "").Info("session created")

	if isHTMX(r) {
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		s.render(w, r, http.StatusCreated, templates.SessionPanel(templates.NewSessionStatus(id, sess)))
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{"id": id})
}

// handleSessionStatus reports both slots, the current error and readiness.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFrom(r.Context())
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	status := templates.NewSessionStatus(id, sess)
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, templates.SessionPanel(status))
		return
	}
	writeJSON(w, status)
}

// handleDeleteSession drops the session and everything uploaded to it.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFrom(r.Context())
	s.sessions.Delete(id)
	logging.ForSession(r.Context(), id, "").Info("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload reads a multipart "file" into a slot. The session is marked
// selected before the read and the result is applied with the read ticket,
// so a newer upload to the same slot always wins.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionIDFrom(ctx)
	slot := slotFrom(ctx)
	log := logging.ForSession(ctx, id, string(slot))

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			s.respondError(w, r, errNoFile, http.StatusBadRequest)
			return
		}
		s.respondError(w, r, fmt.Errorf("parse upload form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	var table *core.Table
	err = s.uploads.Do(ctx, func() error {
		var ticket core.ReadTicket
		_, err := s.sessions.Update(id, func(sess core.Session) (core.Session, error) {
			next, t, err := sess.BeginRead(slot, header.Filename)
			ticket = t
			return next, err
		})
		if err != nil {
			return err
		}

		content, readErr := core.ReadUpload(file, maxSize)
		_, err = s.sessions.Update(id, func(sess core.Session) (core.Session, error) {
			next, t, err := sess.CompleteRead(ticket, content, readErr)
			table = t
			return next, err
		})
		return err
	})
	if err != nil {
		log.Warn("upload rejected", "file", header.Filename, "error", err)
		s.respondError(w, r, err, 0)
		return
	}

	log.Info("upload parsed",
		"file", header.Filename,
		"rows", len(table.Rows),
		"dropped", table.DroppedCount(),
	)
	s.respondSlot(w, r, id, slot)
}

// handleClearSlot empties a slot.
func (s *Server) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionIDFrom(ctx)
	slot := slotFrom(ctx)

	_, err := s.sessions.Update(id, func(sess core.Session) (core.Session, error) {
		return sess.Clear(slot)
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.ForSession(ctx, id, string(slot)).Info("slot cleared")
	s.respondSlot(w, r, id, slot)
}

func (s *Server) respondSlot(w http.ResponseWriter, r *http.Request, id string, slot core.Slot) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	status := templates.NewSlotStatus(id, sess, slot)
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, templates.SlotCard(status))
		return
	}
	writeJSON(w, status)
}

// handlePreview returns the first ?limit rows of a slot's table.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slot := slotFrom(ctx)

	sess, err := s.sessions.Get(sessionIDFrom(ctx))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	table, ok := sess.Table(slot)
	if !ok {
		s.respondError(w, r, errNoTable, http.StatusConflict)
		return
	}

	limit := min(parseIntParam(r, "limit", defaultPreviewRows), maxPreviewRows)
	preview := templates.NewPreview(slot, table, limit)
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, templates.PreviewTable(preview))
		return
	}
	writeJSON(w, preview)
}

type generateRequest struct {
	EmployeeName string `json:"employeeName"`
}

// handleGenerate asks the report backend for a report built from both slots
// and records it in history.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionIDFrom(ctx)
	log := logging.ForSession(ctx, id, "")

	var req generateRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("decode generate request: %w", err), http.StatusBadRequest)
			return
		}
	} else {
		req.EmployeeName = r.FormValue("employeeName")
	}
	employee := strings.TrimSpace(req.EmployeeName)
	if employee == "" {
		s.respondError(w, r, errEmployeeRequired, http.StatusBadRequest)
		return
	}

	// The bundle is taken under the session lock; the backend call runs
	// without it so slow reports don't block reads of the same session.
	var bundle core.Bundle
	_, err := s.sessions.Update(id, func(sess core.Session) (core.Session, error) {
		next, b, err := sess.Prepare()
		bundle = b
		return next, err
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	handle, err := core.GenerateReport(ctx, s.generator, bundle)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res := templates.GenerateResult{ReportHandle: handle}
	rec := core.NewHistoryRecord(employee, bundle, handle, s.now())
	if err := s.history.Record(ctx, rec); err != nil {
		// The report exists; only the history entry is lost.
		log.Error("record history", "report", handle, "error", err)
	} else {
		res.History = &rec
	}

	log.Info("report generated", "report", handle, "employee", employee)
	if isHTMX(r) {
		s.render(w, r, http.StatusCreated, templates.ReportGenerated(res))
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

// handleHistory lists generated reports, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultListLimit)
	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list history: %w", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []core.HistoryRecord{}
	}

	if isHTMX(r) {
		s.render(w, r, http.StatusOK, templates.HistoryTable(records))
		return
	}
	writeJSON(w, map[string]any{"records": records})
}

// handleReport returns an archived report's tables. Without an archive every
// handle is unknown.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	handle := core.ReportHandle(chi.URLParam(r, "handle"))
	if s.reports == nil {
		s.respondError(w, r, fmt.Errorf("%w: %s", report.ErrNotFound, handle), http.StatusNotFound)
		return
	}

	stored, err := s.reports.Get(r.Context(), handle)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		limit := min(parseIntParam(r, "limit", defaultPreviewRows), maxPreviewRows)
		s.render(w, r, http.StatusOK, templates.ArchivedReport(templates.StoredReport{
			ID:              stored.ID,
			OperationalFile: stored.OperationalFile,
			BaseFile:        stored.BaseFile,
			Operational:     archivedPreview(core.SlotOperational, stored.Operational, limit),
			Base:            archivedPreview(core.SlotBase, stored.Base, limit),
		}))
		return
	}
	writeJSON(w, stored)
}

func archivedPreview(slot core.Slot, doc report.TableDoc, limit int) templates.Preview {
	return templates.NewRowsPreview(slot, doc.Headers, doc.Rows, doc.Dropped, limit)
}
