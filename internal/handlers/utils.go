package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/internal/store"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

func accountIDFromContext(ctx context.Context) (int, error) {
	id, ok := ctx.Value(contextSubjectKey).(int)
	if !ok || id < 1 {
		return 0, errors.New("missing subject")
	}
	return id, nil
}

// ErrorResponse is the error payload for every failed request. Error is
// a stable machine-readable code; Field and Message carry detail where
// available.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// respondServiceError translates service and store errors into HTTP
// responses. Every handler funnels unrecognized errors through the
// default arm so nothing leaks internals.
func respondServiceError(w http.ResponseWriter, err error) {
	var validation services.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Field:   validation.Field,
			Message: validation.Message,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", "account not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, store.ErrDuplicateNickname):
		writeError(w, http.StatusConflict, "nickname_taken", "nickname already in use")
	case errors.Is(err, store.ErrAlreadyFollowing):
		writeError(w, http.StatusConflict, "already_following", "target is already followed")
	case errors.Is(err, services.ErrEmptyFollowSet):
		writeError(w, http.StatusBadRequest, "follow_set_empty", "no accounts are followed")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, services.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired", "session token expired")
	case errors.Is(err, services.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "token_invalid", "session token invalid")
	case errors.Is(err, services.ErrRecoveryTokenMismatch):
		writeError(w, http.StatusBadRequest, "recovery_token_mismatch", "recovery token does not match")
	case errors.Is(err, services.ErrRecoveryTokenExpired):
		writeError(w, http.StatusBadRequest, "recovery_token_expired", "recovery token expired")
	case errors.Is(err, services.ErrImageDecode):
		writeError(w, http.StatusBadRequest, "image_invalid", "uploaded file is not a supported image")
	case errors.Is(err, services.ErrThumbnail):
		writeError(w, http.StatusInternalServerError, "thumbnail_failed", "failed to process image")
	case errors.Is(err, services.ErrNotification):
		writeError(w, http.StatusBadGateway, "notification_failed", "failed to send recovery email")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
