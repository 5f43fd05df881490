package http

import (
	"log/slog"
	"net/http"

	"financas/internal/auth"
	"financas/internal/core"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	username := parser.Get("username")
	password := parser.Get("password")
	if username == "" || password == "" {
		writeError(w, r, auth.ErrInvalidCredentials)
		return
	}

	token, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Login rejected", "username", username)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleAuthCheck confirms the session token and names its owner.
func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request, account core.Account) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"account_id":    account.ID,
		"user_id":       account.UserID,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, account core.Account) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	current := parser.Get("current_password")
	next := parser.Get("new_password")

	if err := s.auth.ChangePassword(r.Context(), account.UserID, current, next); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Password changed", "user_id", account.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
