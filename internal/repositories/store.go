package repositories

import (
	"context"
	"errors"

	"comparador/internal/apperr"

	"gorm.io/gorm"
)

// Store groups the credential repositories that must share one transaction boundary.
type Store interface {
	Users() UserRepository
	Tokens() TokenRepository
	// Transaction runs fn against a Store bound to a single transaction. It commits when fn
	// returns nil and rolls back otherwise. Errors without an application kind come back
	// as storage failures.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the gorm implementation of Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a Store over db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Users() UserRepository {
	return NewGORMUserRepository(s.db)
}

func (s *GORMStore) Tokens() TokenRepository {
	return NewGORMTokenRepository(s.db)
}

func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
	return apperr.Storage(err)
}

// translate maps gorm failures onto the application error kinds.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.ErrConflict
	default:
		return apperr.Storage(err)
	}
}
