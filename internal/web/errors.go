package web

// errors.go turns errors into API responses.
//
// The technical error is logged with the request id; the client receives the
// core.MapError message, its action hint and code. Files rejected for their
// header also get the header diff so the sender can see what was missing.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/railcsv/internal/core"
	"github.com/JonMunkholm/railcsv/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Action  string           `json:"action,omitempty"`
	Code    string           `json:"code"`
	Diff    *core.HeaderDiff `json:"diff,omitempty"`
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	s.respondRejected(w, r, err, statusCode, nil)
}

// respondRejected is respondError for a file whose header diff is known.
func (s *Server) respondRejected(w http.ResponseWriter, r *http.Request, err error, statusCode int, diff *core.HeaderDiff) {
	userMsg := core.MapError(err)

	// Unmapped errors are unexpected whatever their status.
	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	logging.WithFields(r.Context(), "path", r.URL.Path, "method", r.Method).
		Log(r.Context(), level, "request error",
			"status", statusCode,
			"error", err.Error(),
			"code", userMsg.Code,
		)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Diff:    diff,
	})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var fhe *core.FileHeaderError
	switch {
	case errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrUnknownSystem),
		errors.Is(err, core.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &fhe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
