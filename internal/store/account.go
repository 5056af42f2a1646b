package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mural-social/apiserver/types"
)

const accountColumns = `id, first_name, last_name, nickname, email, bio, social_media,
		photo_thumbnail, photo_original, password_hash, recovery_token, recovery_expires,
		version, created_at, updated_at`

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id int) (types.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// EmailTaken reports whether any account uses the given email.
func (r *AccountRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// NicknameTaken reports whether an account other than excludeID uses the
// given nickname, compared case-insensitively.
func (r *AccountRepository) NicknameTaken(ctx context.Context, nickname string, excludeID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE lower(nickname) = lower($1) AND id <> $2
		)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, nickname, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 1

	const query = `
		INSERT INTO accounts (first_name, last_name, nickname, email, bio, social_media,
			photo_thumbnail, photo_original, password_hash, recovery_token, recovery_expires,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.Name.First,
		account.Name.Last,
		account.Name.Nickname,
		account.Email,
		account.Bio,
		pq.Array(account.SocialMedia),
		account.Photo.Thumbnail,
		account.Photo.Original,
		account.PasswordHash,
		account.RecoveryToken,
		nullTime(account.RecoveryExpires),
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		return types.Account{}, uniqueViolation(err)
	}
	return account, nil
}

// Update persists an account read at account.Version. It returns
// ErrVersionConflict when a concurrent mutation advanced the version in
// the meantime and ErrNotFound when the account no longer exists.
func (r *AccountRepository) Update(ctx context.Context, account types.Account) (types.Account, error) {
	account.UpdatedAt = time.Now()

	const query = `
		UPDATE accounts
		SET first_name = $1,
			last_name = $2,
			nickname = $3,
			email = $4,
			bio = $5,
			social_media = $6,
			photo_thumbnail = $7,
			photo_original = $8,
			password_hash = $9,
			recovery_token = $10,
			recovery_expires = $11,
			version = version + 1,
			updated_at = $12
		WHERE id = $13 AND version = $14`
	result, err := r.db.ExecContext(
		ctx,
		query,
		account.Name.First,
		account.Name.Last,
		account.Name.Nickname,
		account.Email,
		account.Bio,
		pq.Array(account.SocialMedia),
		account.Photo.Thumbnail,
		account.Photo.Original,
		account.PasswordHash,
		account.RecoveryToken,
		nullTime(account.RecoveryExpires),
		account.UpdatedAt,
		account.ID,
		account.Version,
	)
	if err != nil {
		return types.Account{}, uniqueViolation(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Account{}, err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, account.ID); errors.Is(err, ErrNotFound) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, ErrVersionConflict
	}
	account.Version++
	return account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) scanAccount(row *sql.Row) (types.Account, error) {
	var account types.Account
	var recoveryExpires sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.Name.First,
		&account.Name.Last,
		&account.Name.Nickname,
		&account.Email,
		&account.Bio,
		pq.Array(&account.SocialMedia),
		&account.Photo.Thumbnail,
		&account.Photo.Original,
		&account.PasswordHash,
		&account.RecoveryToken,
		&recoveryExpires,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	if recoveryExpires.Valid {
		expires := recoveryExpires.Time
		account.RecoveryExpires = &expires
	}
	return account, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
