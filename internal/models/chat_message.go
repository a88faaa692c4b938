package models

import "time"

// ChatMessage is a single post on the community board.
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Message   string    `json:"message" gorm:"type:text;not null" validate:"required,max=1000"`
	CreatedAt time.Time `json:"timestamp" gorm:"index"`
}
