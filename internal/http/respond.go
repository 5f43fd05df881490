package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financas/internal/auth"
	"financas/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become
// an opaque 500 so storage details never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrCreditLimit),
		errors.Is(err, core.ErrPaymentExceedsDebt):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrUserNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
