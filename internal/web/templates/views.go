// Package templates renders the HTML fragments returned to HTMX requests and
// holds the view models shared by the JSON and HTML responses.
package templates

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

// DroppedLine describes a data line skipped for having the wrong cell count.
type DroppedLine struct {
	Line int `json:"line"`
	Got  int `json:"got"`
	Want int `json:"want"`
}

// SlotStatus is the state of one upload slot as shown to the user.
type SlotStatus struct {
	SessionID string        `json:"-"`
	Slot      string        `json:"slot"`
	State     string        `json:"state"`
	FileName  string        `json:"fileName,omitempty"`
	Headers   []string      `json:"headers,omitempty"`
	Rows      int           `json:"rows"`
	Dropped   []DroppedLine `json:"dropped,omitempty"`
}

// ErrorInfo is the session's current error in user-facing form.
type ErrorInfo struct {
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Slot    string   `json:"slot,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// SessionStatus is the full state of an ingestion session.
type SessionStatus struct {
	ID    string       `json:"id"`
	Ready bool         `json:"ready"`
	Slots []SlotStatus `json:"slots"`
	Error *ErrorInfo   `json:"error,omitempty"`
}

// Preview holds the first rows of a slot's table.
type Preview struct {
	Slot    string     `json:"slot"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
	Dropped int        `json:"dropped"`
}

// GenerateResult is returned after a report was generated.
type GenerateResult struct {
	ReportHandle core.ReportHandle   `json:"reportHandle"`
	History      *core.HistoryRecord `json:"history,omitempty"`
}

// StoredReport is an archived report opened from the history table.
type StoredReport struct {
	ID              string
	OperationalFile string
	BaseFile        string
	Operational     Preview
	Base            Preview
}

// NewSlotStatus builds the view of slot in sess.
func NewSlotStatus(sessionID string, sess core.Session, slot core.Slot) SlotStatus {
	st := SlotStatus{
		SessionID: sessionID,
		Slot:      string(slot),
		State:     string(sess.State(slot)),
	}
	if f, ok := sess.File(slot); ok {
		st.FileName = f.FileName
	}
	if t, ok := sess.Table(slot); ok {
		st.Headers = t.Headers
		st.Rows = len(t.Rows)
		for _, d := range t.Dropped {
			st.Dropped = append(st.Dropped, DroppedLine{Line: d.LineNumber, Got: d.Got, Want: d.Want})
		}
	}
	return st
}

// NewSessionStatus builds the view of sess.
func NewSessionStatus(id string, sess core.Session) SessionStatus {
	st := SessionStatus{ID: id, Ready: sess.Ready()}
	for _, slot := range core.Slots {
		st.Slots = append(st.Slots, NewSlotStatus(id, sess, slot))
	}
	if err := sess.Err(); err != nil {
		msg := core.MapError(err)
		info := &ErrorInfo{Message: msg.Message, Action: msg.Action, Code: msg.Code}
		if ie, ok := err.(*core.IngestionError); ok {
			info.Slot = string(ie.Slot)
			info.Missing = ie.Missing
		}
		st.Error = info
	}
	return st
}

// NewPreview builds a preview of at most limit rows of t.
func NewPreview(slot core.Slot, t *core.Table, limit int) Preview {
	rows := t.Preview(limit)
	p := Preview{
		Slot:    string(slot),
		Headers: t.Headers,
		Rows:    make([][]string, len(rows)),
		Total:   len(t.Rows),
		Dropped: t.DroppedCount(),
	}
	for i, row := range rows {
		vals := make([]string, len(row))
		for j, c := range row {
			vals[j] = c.Value
		}
		p.Rows[i] = vals
	}
	return p
}

// NewRowsPreview builds a preview of at most limit rows from flattened
// values, as read back from the report archive. A non-positive limit keeps
// every row.
func NewRowsPreview(slot core.Slot, headers []string, rows [][]string, dropped, limit int) Preview {
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	return Preview{
		Slot:    string(slot),
		Headers: headers,
		Rows:    rows[:limit],
		Total:   len(rows),
		Dropped: dropped,
	}
}

func slotTitle(slot string) string {
	if slot == "" {
		return ""
	}
	return strings.ToUpper(slot[:1]) + slot[1:] + " data"
}

func slotURL(s SlotStatus) string {
	return "/api/sessions/" + s.SessionID + "/slots/" + s.Slot
}

func generateURL(sessionID string) string {
	return "/api/sessions/" + sessionID + "/generate"
}

func reportURL(h core.ReportHandle) string {
	return "/api/reports/" + url.PathEscape(string(h))
}

func rowsSummary(s SlotStatus) string {
	return fmt.Sprintf("%d rows, %d columns", s.Rows, len(s.Headers))
}

func droppedNote(d DroppedLine) string {
	return fmt.Sprintf("Line %d skipped: %d cells, expected %d", d.Line, d.Got, d.Want)
}

func previewNote(p Preview) string {
	return fmt.Sprintf("Showing %d of %d rows", len(p.Rows), p.Total)
}
