package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/types"
)

// placeholderAsset is served for accounts without a custom photo.
const placeholderAsset = "blank-profile.png"

// AssetResolver turns stored object keys into public asset URLs.
type AssetResolver struct {
	baseURL string
}

func NewAssetResolver(baseURL string) *AssetResolver {
	return &AssetResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *AssetResolver) assetURL(key string) string {
	return a.baseURL + "/" + key
}

func (a *AssetResolver) photoView(photo types.ProfilePhoto) PhotoView {
	if !photo.Custom() {
		url := a.assetURL(placeholderAsset)
		return PhotoView{Thumbnail: url, Original: url}
	}
	return PhotoView{
		Thumbnail: a.assetURL(photo.Thumbnail),
		Original:  a.assetURL(photo.Original),
	}
}

func (a *AssetResolver) accountView(account types.Account) AccountView {
	following := account.Following
	if following == nil {
		following = []int{}
	}
	socialMedia := account.SocialMedia
	if socialMedia == nil {
		socialMedia = []string{}
	}
	return AccountView{
		ID:          account.ID,
		Name:        account.Name,
		Email:       account.Email,
		Bio:         account.Bio,
		SocialMedia: socialMedia,
		Photo:       a.photoView(account.Photo),
		Following:   following,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

// AccountHandler provides HTTP handlers for the account lifecycle.
type AccountHandler struct {
	accounts *services.AccountService
	media    *services.MediaService
	assets   *AssetResolver
}

// NewAccountHandler constructs a handler with the provided services.
func NewAccountHandler(accounts *services.AccountService, media *services.MediaService, assets *AssetResolver) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		media:    media,
		assets:   assets,
	}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(
	r chi.Router,
	accounts *services.AccountService,
	media *services.MediaService,
	tokens *services.TokenService,
	assets *AssetResolver,
) {
	handler := NewAccountHandler(accounts, media, assets)
	auth := RequireAuth(tokens)

	r.Post("/", NewAuthHandler(accounts, tokens, assets).Register)
	r.Get("/exists/email/{email}", handler.EmailAvailable)
	r.Get("/exists/nickname/{nickname}", handler.NicknameAvailable)
	r.With(auth).Put("/", handler.Edit)
	r.With(auth).Patch("/photo", handler.ReplacePhoto)
	r.Route("/{accountID}", func(r chi.Router) {
		r.Get("/", handler.Profile)
		r.With(auth).Delete("/", handler.Delete)
	})
}

// Profile returns the account with its posts and follow set.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid account id")
		return
	}

	account, posts, err := h.accounts.Profile(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if posts == nil {
		posts = []types.Post{}
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		Account: h.assets.accountView(account),
		Posts:   posts,
	})
}

// Edit replaces the authenticated account's profile fields.
func (h *AccountHandler) Edit(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token_invalid", "unauthorized")
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	update := services.ProfileUpdate{
		Name: types.Name{
			First:    strings.TrimSpace(req.First),
			Last:     strings.TrimSpace(req.Last),
			Nickname: strings.TrimSpace(req.Nickname),
		},
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		Bio:         req.Bio,
		SocialMedia: req.SocialMedia,
	}

	if err := h.accounts.Edit(r.Context(), accountID, update); err != nil {
		respondServiceError(w, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.assets.accountView(account))
}

// Delete removes the authenticated account. Only the account owner may
// delete it.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token_invalid", "unauthorized")
		return
	}

	id, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid account id")
		return
	}
	if id != accountID {
		writeError(w, http.StatusForbidden, "forbidden", "cannot delete another account")
		return
	}

	if err := h.accounts.Remove(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EmailAvailable reports whether an email is free for registration.
func (h *AccountHandler) EmailAvailable(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	available, err := h.accounts.EmailAvailable(r.Context(), email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// NicknameAvailable reports whether a nickname is free for registration.
func (h *AccountHandler) NicknameAvailable(w http.ResponseWriter, r *http.Request) {
	nickname := strings.TrimSpace(chi.URLParam(r, "nickname"))
	if nickname == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "nickname is required")
		return
	}

	available, err := h.accounts.NicknameAvailable(r.Context(), nickname)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// AccountView is the public shape of an account. Photo keys are resolved
// into URLs; accounts without a custom photo get the placeholder.
type AccountView struct {
	ID          int        `json:"id"`
	Name        types.Name `json:"name"`
	Email       string     `json:"email"`
	Bio         string     `json:"bio"`
	SocialMedia []string   `json:"socialMedia"`
	Photo       PhotoView  `json:"photo"`
	Following   []int      `json:"following"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PhotoView carries the resolved asset URLs for a profile photo pair.
type PhotoView struct {
	Thumbnail string `json:"thumbnail"`
	Original  string `json:"original"`
}

type ProfileResponse struct {
	Account AccountView  `json:"account"`
	Posts   []types.Post `json:"posts"`
}

type EditRequest struct {
	First       string   `json:"first"`
	Last        string   `json:"last"`
	Nickname    string   `json:"nickname"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Bio         string   `json:"bio"`
	SocialMedia []string `json:"socialMedia"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

func parseAccountID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "accountID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid account id")
	}
	return id, nil
}
