package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/workorbit/workorbit/internal/domain"
)

// envelope is the uniform response body: success responses carry data,
// failure responses carry a caller-safe error string.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError maps the domain error taxonomy onto HTTP statuses and emits
// the stable failure envelope. Unrecognized errors become a generic 500 so
// internals never leak to callers.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	if log == nil {
		log = slog.Default()
	}

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidState):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrExhaustedCapacity):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		status, message = http.StatusLocked, "account temporarily locked"
	default:
		log.Error("unhandled error", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}
