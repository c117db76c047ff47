package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"expense-manager/internal/errs"
	"expense-manager/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, pwd_hash)
VALUES ($1, $2, $3)`
	return withRetry(ctx, "users.create", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Email, u.PwdHash)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	})
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, email, pwd_hash, created_at, deactivated_at
FROM users WHERE id=$1`
	var u model.User
	err := withRetry(ctx, "users.get_by_id", func(ctx context.Context) error {
		return r.scanUser(r.db.Pool.QueryRow(ctx, q, id), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail selects a user by lowercase email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, email, pwd_hash, created_at, deactivated_at
FROM users WHERE email=$1`
	var u model.User
	err := withRetry(ctx, "users.get_by_email", func(ctx context.Context) error {
		return r.scanUser(r.db.Pool.QueryRow(ctx, q, email), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePassword replaces the stored hash; deactivated accounts are not updated.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash []byte) error {
	const q = `
UPDATE users SET pwd_hash = $2
WHERE id = $1 AND deactivated_at IS NULL`
	return withRetry(ctx, "users.update_password", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// Deactivate sets the soft-delete marker; already deactivated rows are untouched.
func (r *UserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE users SET deactivated_at = now()
WHERE id = $1 AND deactivated_at IS NULL`
	return withRetry(ctx, "users.deactivate", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

func (r *UserRepo) scanUser(row pgx.Row, u *model.User) error {
	err := row.Scan(&u.ID, &u.Email, &u.PwdHash, &u.CreatedAt, &u.DeactivatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) || isTransient(err) {
			return err
		}
		return errs.ErrNotFound
	}
	return nil
}
