package store

import (
	"context"
	"database/sql"
)

// FollowRepository handles persistence for the social graph. Each row is
// an outbound follow edge; the primary key makes duplicate follows
// impossible even under concurrent requests.
type FollowRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Add inserts a follow edge. It returns ErrAlreadyFollowing when the edge
// already exists.
func (r *FollowRepository) Add(ctx context.Context, accountID, targetID int) error {
	const query = `
		INSERT INTO follows (account_id, target_id)
		VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, accountID, targetID); err != nil {
		return uniqueViolation(err)
	}
	return nil
}

// Remove deletes a follow edge. Removing an edge that does not exist is
// not an error.
func (r *FollowRepository) Remove(ctx context.Context, accountID, targetID int) error {
	const query = `DELETE FROM follows WHERE account_id = $1 AND target_id = $2`
	_, err := r.db.ExecContext(ctx, query, accountID, targetID)
	return err
}

// RemoveTarget deletes every edge pointing at targetID. Used to prune
// references to a removed account.
func (r *FollowRepository) RemoveTarget(ctx context.Context, targetID int) error {
	const query = `DELETE FROM follows WHERE target_id = $1`
	_, err := r.db.ExecContext(ctx, query, targetID)
	return err
}

// List returns the ids the account follows, oldest edge first.
func (r *FollowRepository) List(ctx context.Context, accountID int) ([]int, error) {
	const query = `
		SELECT target_id FROM follows
		WHERE account_id = $1
		ORDER BY created_at, target_id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the size of the account's follow set.
func (r *FollowRepository) Count(ctx context.Context, accountID int) (int, error) {
	const query = `SELECT count(*) FROM follows WHERE account_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
