package types

import "time"

// Post is a piece of content owned by an account. Removing the account
// removes its posts.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	AuthorID  int       `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
