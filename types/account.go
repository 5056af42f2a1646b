package types

import "time"

// Name groups the parts of an account's display name.
// Nickname is unique case-insensitively across all accounts.
type Name struct {
	First    string `json:"first"`
	Last     string `json:"last"`
	Nickname string `json:"nickname"`
}

// ProfilePhoto references the stored media asset pair for an account.
// The zero value means the account has no custom photo and should be
// rendered with the shared placeholder asset. Thumbnail and Original
// are object-storage keys, never public URLs.
type ProfilePhoto struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Original  string `json:"original,omitempty"`
}

// Custom reports whether the account has uploaded its own photo pair.
func (p ProfilePhoto) Custom() bool {
	return p.Thumbnail != "" || p.Original != ""
}

// Account is the identity record of the system.
type Account struct {
	// ID is the unique identifier of the account.
	ID int `json:"id" db:"id"`

	Name Name `json:"name"`

	// Email is unique across all accounts.
	Email string `json:"email" db:"email"`

	Bio string `json:"bio" db:"bio"`

	// SocialMedia is the account's set of external profile links.
	SocialMedia []string `json:"socialMedia" db:"social_media"`

	Photo ProfilePhoto `json:"photo"`

	// Following holds the ids of accounts this account follows.
	// They are weak references: a followed account may no longer exist.
	Following []int `json:"following,omitempty"`

	// PasswordHash stores the bcrypt hash of the account's password.
	// It is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// RecoveryToken and RecoveryExpires are set only while a password
	// reset is in flight. At most one reset is active per account.
	RecoveryToken   string     `json:"-" db:"recovery_token"`
	RecoveryExpires *time.Time `json:"-" db:"recovery_expires"`

	// Version is the optimistic concurrency counter. Every persisted
	// mutation must carry the version it read.
	Version int `json:"-" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
