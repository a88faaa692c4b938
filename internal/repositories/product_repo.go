package repositories

import (
	"context"

	"comparador/internal/models"
)

// ProductRepository defines the interface for product data access.
// Listings are ordered newest upload first.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
