package services

import (
	"context"

	"comparador/internal/models"
	"comparador/internal/repositories"
	"comparador/internal/sessions"
)

// CartService keeps the per-session ordered list of product snapshots.
// Items can only be appended or cleared all at once.
type CartService struct {
	sessions sessions.Store
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(store sessions.Store, products repositories.ProductRepository) *CartService {
	return &CartService{
		sessions: store,
		products: products,
	}
}

// Add appends a snapshot of productID to the cart of sid. No principal is required.
// A missing product fails with apperr.ErrNotFound.
func (s *CartService) Add(ctx context.Context, sid, productID string) (*models.CartItem, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	state, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	item := models.NewCartItem(product) // price at the time of adding
	state.Cart = append(state.Cart, item)
	if err := s.sessions.Save(ctx, sid, state); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns the items of sid and their price total.
func (s *CartService) List(ctx context.Context, sid string) (models.Cart, error) {
	state, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return models.Cart{}, err
	}
	return models.NewCart(state.Cart), nil
}

// Clear empties the cart of sid. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, sid string) error {
	state, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return err
	}
	if len(state.Cart) == 0 {
		return nil
	}
	state.Cart = nil
	return s.sessions.Save(ctx, sid, state)
}
