package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an insert or update violates
	// the email uniqueness constraint.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrDuplicateNickname is returned when an insert or update violates
	// the case-insensitive nickname uniqueness constraint.
	ErrDuplicateNickname = errors.New("nickname already in use")

	// ErrAlreadyFollowing is returned when a follow edge already exists.
	ErrAlreadyFollowing = errors.New("already following")

	// ErrVersionConflict is returned when an optimistic write lost the
	// race against a concurrent mutation of the same account.
	ErrVersionConflict = errors.New("version conflict")
)

const pqUniqueViolation = "23505"

// uniqueViolation maps a pq unique-violation error to the typed conflict
// for the constraint it hit, or returns err unchanged.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "accounts_email_key":
		return ErrDuplicateEmail
	case "accounts_nickname_key":
		return ErrDuplicateNickname
	case "follows_pkey":
		return ErrAlreadyFollowing
	}
	return err
}
