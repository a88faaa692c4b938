package repositories

import (
	"context"
	"time"

	"comparador/internal/models"
)

// TokenRepository defines the interface for password reset token data access.
type TokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// GetByToken returns apperr.ErrNotFound when the token string is unknown.
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// Delete removes the row with id, returning apperr.ErrNotFound when it is already gone.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every token whose expiry is before now and reports how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
