package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mural-social/apiserver/internal/store"
)

const (
	recoveryTokenBytes = 32
	recoveryTokenTTL   = time.Hour
)

// Notifier delivers recovery tokens out of band.
type Notifier interface {
	SendRecoveryToken(ctx context.Context, address, token string) error
}

// RecoveryService drives the password-reset protocol: time-bounded,
// single-use recovery tokens stored inline on the account.
type RecoveryService struct {
	accounts AccountRepository
	hasher   *PasswordHasher
	notifier Notifier
	now      func() time.Time
}

func NewRecoveryService(accounts AccountRepository, hasher *PasswordHasher, notifier Notifier) *RecoveryService {
	return &RecoveryService{
		accounts: accounts,
		hasher:   hasher,
		notifier: notifier,
		now:      time.Now,
	}
}

// BeginReset generates a recovery token for the account behind email,
// persists it with a one-hour expiry, and mails it. Any prior in-flight
// token is overwritten: at most one reset is active per account. The
// token is returned for the caller's bookkeeping, never for the response
// body.
func (s *RecoveryService) BeginReset(ctx context.Context, email string) (string, error) {
	token, err := newRecoveryToken()
	if err != nil {
		return "", fmt.Errorf("generate recovery token: %w", err)
	}

	var address string
	for attempt := 0; ; attempt++ {
		account, err := s.accounts.GetByEmail(ctx, email)
		if err != nil {
			return "", err
		}
		address = account.Email

		expires := s.now().Add(recoveryTokenTTL)
		account.RecoveryToken = token
		account.RecoveryExpires = &expires

		_, err = s.accounts.Update(ctx, account)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxMutationRetries {
			continue
		}
		if err != nil {
			return "", err
		}
		break
	}

	if err := s.notifier.SendRecoveryToken(ctx, address, token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotification, err)
	}
	return token, nil
}

// CompleteReset consumes the recovery token and replaces the password.
// The stored token must equal the provided one and the captured instant
// must be strictly before the expiry. On success both recovery fields are
// cleared, so a second attempt with the same token fails with a mismatch.
func (s *RecoveryService) CompleteReset(ctx context.Context, email, token, newPassword string) error {
	if token == "" {
		return missingField("token")
	}
	if newPassword == "" {
		return missingField("password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; ; attempt++ {
		account, err := s.accounts.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		// Evaluate both checks against a single captured instant so the
		// token cannot look valid and expired at once.
		now := s.now()
		if account.RecoveryToken == "" || account.RecoveryToken != token {
			return ErrRecoveryTokenMismatch
		}
		if account.RecoveryExpires == nil || !now.Before(*account.RecoveryExpires) {
			return ErrRecoveryTokenExpired
		}

		account.PasswordHash = hash
		account.RecoveryToken = ""
		account.RecoveryExpires = nil

		_, err = s.accounts.Update(ctx, account)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxMutationRetries {
			continue
		}
		return err
	}
}

func newRecoveryToken() (string, error) {
	buf := make([]byte, recoveryTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
