package models

import "time"

// Product represents a price listing in the catalog.
type Product struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string    `json:"name" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Brand      string    `json:"brand" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Price      float64   `json:"price" gorm:"not null" validate:"gte=0"`
	Place      string    `json:"place" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	UploadedAt time.Time `json:"upload_date" gorm:"index"`
}
