package repositories

import (
	"context"

	"comparador/internal/models"
)

// UserRepository defines the interface for user data access.
// Lookups return apperr.ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
