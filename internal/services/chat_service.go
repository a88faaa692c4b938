package services

import (
	"context"

	"comparador/internal/models"
	"comparador/internal/repositories"
)

// RecentChatLimit is how many messages the board shows.
const RecentChatLimit = 50

type ChatService struct {
	repo repositories.ChatRepository
}

func NewChatService(repo repositories.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

// Post stores a message on the board.
func (s *ChatService) Post(ctx context.Context, username, message string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{Username: username, Message: message}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Recent returns the latest messages, newest first.
func (s *ChatService) Recent(ctx context.Context) ([]models.ChatMessage, error) {
	return s.repo.Latest(ctx, RecentChatLimit)
}
