package repositories

import (
	"context"
	"fmt"

	"comparador/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat board data access.
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	Latest(ctx context.Context, limit int) ([]models.ChatMessage, error)
}

// GORMChatRepository is a GORM implementation of ChatRepository.
type GORMChatRepository struct {
	db *gorm.DB
}

func NewGORMChatRepository(db *gorm.DB) *GORMChatRepository {
	return &GORMChatRepository{db: db}
}

func (r *GORMChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", translate(err))
	}
	return nil
}

// Latest returns up to limit messages, newest first.
func (r *GORMChatRepository) Latest(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", translate(err))
	}
	return msgs, nil
}
