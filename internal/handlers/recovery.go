package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/internal/store"
)

// RecoveryHandler provides the password-reset endpoints.
type RecoveryHandler struct {
	recovery *services.RecoveryService
}

// NewRecoveryHandler constructs a handler with the provided service.
func NewRecoveryHandler(recovery *services.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

// RecoveryRouter registers password-recovery routes on the given router.
func RecoveryRouter(r chi.Router, recovery *services.RecoveryService) {
	handler := NewRecoveryHandler(recovery)

	r.Post("/forgot", handler.Forgot)
	r.Patch("/reset", handler.Reset)
}

// Forgot starts a reset: a recovery token is generated, stored with a
// one-hour expiry, and mailed to the account's address. The token never
// appears in the response.
func (h *RecoveryHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email not provided")
		return
	}

	if _, err := h.recovery.BeginReset(r.Context(), email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account_not_found", "no account with that email")
			return
		}
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecoveryResponse{Sent: true})
}

// Reset consumes the recovery token and replaces the password.
func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email not provided")
		return
	}

	err := h.recovery.CompleteReset(r.Context(), email, strings.TrimSpace(req.Token), req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecoveryResponse{Reset: true})
}

type ForgotRequest struct {
	Email string `json:"email"`
}

type ResetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type RecoveryResponse struct {
	Sent  bool `json:"sent,omitempty"`
	Reset bool `json:"reset,omitempty"`
}
