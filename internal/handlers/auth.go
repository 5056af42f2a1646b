package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/types"
)

// AuthHandler provides registration, login, and token validation.
type AuthHandler struct {
	accounts *services.AccountService
	tokens   *services.TokenService
	assets   *AssetResolver
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, tokens *services.TokenService, assets *AssetResolver) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		assets:   assets,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, accounts *services.AccountService, tokens *services.TokenService, assets *AssetResolver) {
	handler := NewAuthHandler(accounts, tokens, assets)

	r.Post("/login", handler.Login)
	r.Post("/validate", handler.Validate)
}

// RequireAuth constructs middleware that enforces a valid session token
// and injects the account id into the request context.
func RequireAuth(tokens *services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "token_invalid", "missing bearer token")
				return
			}

			accountID, err := tokens.Verify(tokenString)
			if err != nil {
				respondServiceError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new account and returns it with a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	form := services.RegistrationForm{
		Name: types.Name{
			First:    strings.TrimSpace(req.First),
			Last:     strings.TrimSpace(req.Last),
			Nickname: strings.TrimSpace(req.Nickname),
		},
		Email:           strings.TrimSpace(req.Email),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}

	account, token, err := h.accounts.Register(r.Context(), form)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:   token,
		Account: h.assets.accountView(account),
	})
}

// Login verifies credentials and returns the account with a fresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	account, token, err := h.accounts.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:   token,
		Account: h.assets.accountView(account),
	})
}

// Validate checks the bearer token and returns the account it binds. A
// token whose account no longer exists does not validate.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	tokenString, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token_invalid", "missing bearer token")
		return
	}

	accountID, err := h.tokens.Verify(tokenString)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:     true,
		AccountID: accountID,
		Account:   h.assets.accountView(account),
	})
}

type RegisterRequest struct {
	First           string `json:"first"`
	Last            string `json:"last"`
	Nickname        string `json:"nickname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token   string      `json:"token"`
	Account AccountView `json:"account"`
}

type ValidateResponse struct {
	Valid     bool        `json:"valid"`
	AccountID int         `json:"accountId"`
	Account   AccountView `json:"account"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
