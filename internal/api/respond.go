package api

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"scoreboard/internal/apperr"
)

type successResult struct {
	Status bool `json:"status"`
	Data   any  `json:"data,omitempty"`
}

type failureResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successResult{Status: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureResult{Status: false, Message: message})
}

// writeError maps the error taxonomy onto HTTP status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsDuplicate(err):
		status = http.StatusConflict
	case apperr.IsConflict(err):
		status = http.StatusBadRequest
	case apperr.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		status = http.StatusServiceUnavailable
	default:
		a.logger.Error("request_failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeFailure(w, status, err.Error())
}
