package repositories

import (
	"context"
	"fmt"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{db: db}
}

func (r *GORMTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create reset token: %w", translate(err))
	}
	return nil
}

func (r *GORMTokenRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", translate(err))
	}
	return &t, nil
}

func (r *GORMTokenRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete reset token: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reset token %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *GORMTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, "expires_at < ?", now.UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", translate(res.Error))
	}
	return res.RowsAffected, nil
}
