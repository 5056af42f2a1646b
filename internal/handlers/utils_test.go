package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/internal/store"
	"github.com/mural-social/apiserver/types"
)

func TestRespondServiceError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", services.ValidationError{Field: "email", Message: "email not provided"}, http.StatusBadRequest, "validation_error"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "account_not_found"},
		{"duplicate email", store.ErrDuplicateEmail, http.StatusConflict, "email_taken"},
		{"duplicate nickname", store.ErrDuplicateNickname, http.StatusConflict, "nickname_taken"},
		{"already following", store.ErrAlreadyFollowing, http.StatusConflict, "already_following"},
		{"empty follow set", services.ErrEmptyFollowSet, http.StatusBadRequest, "follow_set_empty"},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"expired session", services.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{"invalid session", services.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid"},
		{"recovery mismatch", services.ErrRecoveryTokenMismatch, http.StatusBadRequest, "recovery_token_mismatch"},
		{"recovery expired", services.ErrRecoveryTokenExpired, http.StatusBadRequest, "recovery_token_expired"},
		{"bad image", services.ErrImageDecode, http.StatusBadRequest, "image_invalid"},
		{"thumbnail failure", services.ErrThumbnail, http.StatusInternalServerError, "thumbnail_failed"},
		{"mail failure", services.ErrNotification, http.StatusBadGateway, "notification_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		{"wrapped sentinel", errors.Join(errors.New("context"), store.ErrNotFound), http.StatusNotFound, "account_not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rec.Code, tc.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Error != tc.wantCode {
				t.Fatalf("code: got %q want %q", resp.Error, tc.wantCode)
			}
		})
	}
}

func TestRespondServiceErrorCarriesField(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondServiceError(rec, services.ValidationError{Field: "nickname", Message: "nickname not provided"})

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Field != "nickname" {
		t.Fatalf("field: got %q want %q", resp.Field, "nickname")
	}
}

func TestAssetResolverPlaceholder(t *testing.T) {
	t.Parallel()

	assets := NewAssetResolver("http://assets.local/media/")

	view := assets.photoView(types.ProfilePhoto{})
	want := "http://assets.local/media/" + placeholderAsset
	if view.Thumbnail != want || view.Original != want {
		t.Fatalf("placeholder view: got %+v want both %q", view, want)
	}
}

func TestAssetResolverCustomPhoto(t *testing.T) {
	t.Parallel()

	assets := NewAssetResolver("http://assets.local/media")

	view := assets.photoView(types.ProfilePhoto{
		Thumbnail: "thumbnail-x.jpg",
		Original:  "original-x.jpg",
	})
	if view.Thumbnail != "http://assets.local/media/thumbnail-x.jpg" {
		t.Fatalf("thumbnail url: got %q", view.Thumbnail)
	}
	if view.Original != "http://assets.local/media/original-x.jpg" {
		t.Fatalf("original url: got %q", view.Original)
	}
}

func TestAccountViewNeverNil(t *testing.T) {
	t.Parallel()

	assets := NewAssetResolver("http://assets.local")
	view := assets.accountView(types.Account{ID: 1})

	if view.Following == nil || view.SocialMedia == nil {
		t.Fatalf("expected empty slices, got following=%v socialMedia=%v", view.Following, view.SocialMedia)
	}
}

func TestReadFileLimited(t *testing.T) {
	t.Parallel()

	data, err := readFileLimited(strings.NewReader("hello"), 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("data: got %q", data)
	}

	if _, err := readFileLimited(strings.NewReader("this is too long"), 4); err == nil {
		t.Fatalf("expected error for oversized upload")
	}
}
