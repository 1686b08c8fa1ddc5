package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/starford/dataforge/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// validator is implemented by request bodies that can check themselves.
type validator interface {
	Validate() error
}

// decodeJSON reads a JSON body into v and validates it when possible.
// It writes the 400 response itself and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if val, ok := v.(validator); ok {
		if err := val.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return false
		}
	}
	return true
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, apperr.ErrParseFailure):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrPrecondition):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrSQLUnavailable):
		status = http.StatusNotImplemented
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
