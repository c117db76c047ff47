// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/model"
)

// UserRepository provides access to stored accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by lowercase email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePassword replaces the stored hash record for an active user.
	UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash []byte) error
	// Deactivate soft-deletes the account; expenses stay on record.
	Deactivate(ctx context.Context, id uuid.UUID) error
}
