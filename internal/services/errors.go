package services

import "errors"

var (
	// ErrInvalidCredentials is returned when a password does not match
	// the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned when a session token fails signature
	// or shape verification.
	ErrTokenInvalid = errors.New("session token invalid")

	// ErrTokenExpired is returned when a session token is past its
	// validity window.
	ErrTokenExpired = errors.New("session token expired")

	// ErrRecoveryTokenMismatch is returned when the provided recovery
	// token does not equal the stored one, including after the stored
	// token was consumed.
	ErrRecoveryTokenMismatch = errors.New("recovery token mismatch")

	// ErrRecoveryTokenExpired is returned when the recovery token's
	// expiry has passed.
	ErrRecoveryTokenExpired = errors.New("recovery token expired")

	// ErrEmptyFollowSet is returned by unfollow when the account does
	// not follow anyone.
	ErrEmptyFollowSet = errors.New("follow set is empty")

	// ErrImageDecode is returned when an upload is not a supported
	// raster image.
	ErrImageDecode = errors.New("image decode failed")

	// ErrThumbnail is returned when thumbnail derivation or persistence
	// fails. The account record is left untouched in that case.
	ErrThumbnail = errors.New("thumbnail generation failed")

	// ErrNotification is returned when the recovery email could not be
	// delivered.
	ErrNotification = errors.New("notification failed")
)

// ValidationError reports incomplete or contradictory client input,
// naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func missingField(field string) ValidationError {
	return ValidationError{Field: field, Message: field + " not provided"}
}
