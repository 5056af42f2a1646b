package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/internal/store"
	"github.com/mural-social/apiserver/types"
)

// stubAccounts backs an AccountService with a fixed set of accounts.
// Only the read paths the auth handlers exercise are meaningful.
type stubAccounts struct {
	byID map[int]types.Account
}

func (s *stubAccounts) GetByID(_ context.Context, id int) (types.Account, error) {
	account, ok := s.byID[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (s *stubAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	for _, account := range s.byID {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (s *stubAccounts) EmailTaken(context.Context, string) (bool, error) { return false, nil }

func (s *stubAccounts) NicknameTaken(context.Context, string, int) (bool, error) {
	return false, nil
}

func (s *stubAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	return account, nil
}

func (s *stubAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	return account, nil
}

func (s *stubAccounts) Delete(context.Context, int) error { return nil }

type stubPosts struct{}

func (stubPosts) ListByAuthor(context.Context, int) ([]types.Post, error) { return nil, nil }
func (stubPosts) IDsByAuthor(context.Context, int) ([]int64, error)       { return nil, nil }

type stubFollows struct{}

func (stubFollows) Add(context.Context, int, int) error      { return nil }
func (stubFollows) Remove(context.Context, int, int) error   { return nil }
func (stubFollows) RemoveTarget(context.Context, int) error  { return nil }
func (stubFollows) List(context.Context, int) ([]int, error) { return nil, nil }
func (stubFollows) Count(context.Context, int) (int, error)  { return 0, nil }

type stubJanitor struct{}

func (stubJanitor) DeleteBlobs(context.Context, ...string) {}
func (stubJanitor) DeletePosts(context.Context, ...int64)  {}
func (stubJanitor) PruneFollowers(context.Context, int)    {}

func newAuthFixture(accounts map[int]types.Account) (*AuthHandler, *services.TokenService) {
	tokens := services.NewTokenService([]byte("test-secret"))
	svc := services.NewAccountService(
		&stubAccounts{byID: accounts},
		stubPosts{},
		stubFollows{},
		services.NewPasswordHasher(),
		tokens,
		stubJanitor{},
	)
	return NewAuthHandler(svc, tokens, NewAssetResolver("http://assets.local")), tokens
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	tokens := services.NewTokenService([]byte("test-secret"))
	otherTokens := services.NewTokenService([]byte("other-secret"))

	protected := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r.Context())
		if err != nil {
			t.Errorf("subject missing from context: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]int{"accountId": accountID})
	}))

	token, err := tokens.Issue(12)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	foreign, err := otherTokens.Issue(12)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	handler, tokens := newAuthFixture(map[int]types.Account{
		7: {
			ID:    7,
			Name:  types.Name{First: "Iris", Last: "Vale", Nickname: "iris"},
			Email: "iris@example.com",
		},
	})

	token, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.Validate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp ValidateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Valid || resp.AccountID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Account.ID != 7 || resp.Account.Email != "iris@example.com" {
		t.Fatalf("account not returned: %+v", resp.Account)
	}
}

func TestValidateRejectsUnknownAccount(t *testing.T) {
	t.Parallel()

	handler, tokens := newAuthFixture(map[int]types.Account{})

	// Well-formed token, but its subject was never created (or has been
	// deleted since issuance). It must not validate.
	token, err := tokens.Issue(999999)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.Validate(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want %d (%s)", rec.Code, http.StatusNotFound, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "account_not_found" {
		t.Fatalf("error code: got %q want %q", resp.Error, "account_not_found")
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	t.Parallel()

	handler, _ := newAuthFixture(map[int]types.Account{})

	req := httptest.NewRequest(http.MethodPost, "/auth/validate", nil)
	rec := httptest.NewRecorder()

	handler.Validate(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"plain", "Bearer abc123", "abc123", false},
		{"case insensitive scheme", "bearer abc123", "abc123", false},
		{"missing", "", "", true},
		{"no token", "Bearer ", "", true},
		{"wrong scheme", "Token abc123", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			got, err := bearerToken(req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("token: got %q want %q", got, tc.want)
			}
		})
	}
}
