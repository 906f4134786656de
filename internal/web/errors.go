package web

// errors.go turns engine errors into HTTP responses.
//
// File-level failures (unknown type, unreadable or empty file, missing
// columns) abort a run before any row is processed; they are answered with a
// 4xx and no data. Row-level failures never reach this file: they travel
// inside the BulkResult of a successful response.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/JonMunkholm/reportload/internal/logging"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Action     string `json:"action,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// statusFor picks the HTTP status for a fatal ingestion error.
func statusFor(err error) int {
	var (
		unknown *core.UnknownTypeError
		noSheet *core.NoSheetError
		empty   *core.EmptyFileError
		missing *core.MissingColumnsError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &noSheet), errors.As(err, &empty), errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and answers with the mapped
// user-facing message. Client errors keep the precise error text, since it
// names the offending columns or file.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "status", status, "code", msg.Code, "error", err}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	message := msg.Message
	if status < http.StatusInternalServerError || core.IsFatal(err) {
		message = err.Error()
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}

	writeJSON(w, status, Envelope{
		StatusCode: status,
		Message:    message,
		Code:       msg.Code,
		Action:     msg.Action,
	})
}
