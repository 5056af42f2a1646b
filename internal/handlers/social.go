package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mural-social/apiserver/internal/services"
)

// SocialHandler provides follow and unfollow endpoints.
type SocialHandler struct {
	social *services.SocialService
}

// NewSocialHandler constructs a handler with the provided service.
func NewSocialHandler(social *services.SocialService) *SocialHandler {
	return &SocialHandler{social: social}
}

// SocialRouter registers social-graph routes on the given router. All
// routes require authentication.
func SocialRouter(r chi.Router, social *services.SocialService, tokens *services.TokenService) {
	handler := NewSocialHandler(social)
	auth := RequireAuth(tokens)

	r.With(auth).Post("/follow", handler.Follow)
	r.With(auth).Post("/unfollow", handler.Unfollow)
}

// Follow adds the target to the authenticated account's follow set.
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	accountID, targetID, ok := h.parseFollowRequest(w, r)
	if !ok {
		return
	}

	if err := h.social.Follow(r.Context(), accountID, targetID); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FollowResponse{TargetID: targetID, Following: true})
}

// Unfollow removes the target from the authenticated account's follow set.
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	accountID, targetID, ok := h.parseFollowRequest(w, r)
	if !ok {
		return
	}

	if err := h.social.Unfollow(r.Context(), accountID, targetID); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FollowResponse{TargetID: targetID, Following: false})
}

func (h *SocialHandler) parseFollowRequest(w http.ResponseWriter, r *http.Request) (accountID, targetID int, ok bool) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token_invalid", "unauthorized")
		return 0, 0, false
	}

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return 0, 0, false
	}
	if req.TargetID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid target id")
		return 0, 0, false
	}
	return accountID, req.TargetID, true
}

type FollowRequest struct {
	TargetID int `json:"targetId"`
}

type FollowResponse struct {
	TargetID  int  `json:"targetId"`
	Following bool `json:"following"`
}
