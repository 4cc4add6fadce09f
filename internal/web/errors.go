package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error goes through respondError, which:
//  1. Maps the error via core.MapError to a user-facing message and code
//  2. Logs the technical error with the request ID for correlation
//  3. Renders JSON for API clients or an alert fragment for HTMX

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/report"
	"github.com/JonMunkholm/fleetdata/internal/session"
	"github.com/JonMunkholm/fleetdata/internal/web/templates"
)

var (
	errNoFile           = errors.New("no file provided")
	errNoTable          = errors.New("slot has no parsed table")
	errEmployeeRequired = errors.New("employee name is required")
	errRateLimited      = errors.New("rate limit exceeded")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Slot    string   `json:"slot,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// statusFor chooses the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, core.ErrUnknownSlot),
		errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrStaleRead), errors.Is(err, errNoTable):
		return http.StatusConflict
	}

	switch core.KindOf(err) {
	case core.KindUnsupportedFileType, core.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case core.KindReadFailure:
		return http.StatusBadRequest
	case core.KindMissingColumns:
		return http.StatusUnprocessableEntity
	case core.KindNotReady:
		return http.StatusConflict
	case core.KindGenerateFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// A statusCode of 0 derives the status from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var ie *core.IngestionError
	if errors.As(err, &ie) {
		resp.Slot = string(ie.Slot)
		resp.Missing = ie.Missing
	}
	writeJSONStatus(w, statusCode, resp)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isJSONBody reports whether the request body is JSON.
func isJSONBody(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON and writes it with status.
// Logs encoding errors since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
