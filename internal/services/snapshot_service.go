package services

import (
	"context"
	"sync"

	"comparador/internal/apperr"
	"comparador/internal/database"
	"comparador/internal/models"

	"gorm.io/gorm"
)

// SnapshotService transfers the whole persisted store as one sqlite file. Only the
// administrator may use it. Import is destructive and keeps no backup.
type SnapshotService struct {
	db    *gorm.DB
	path  string
	authz *Authorizer
	mu    sync.Mutex
}

// NewSnapshotService creates a SnapshotService. path is the sqlite file backing db; an
// empty path means there is no file-shaped store and both operations report not found.
func NewSnapshotService(db *gorm.DB, path string, authz *Authorizer) *SnapshotService {
	return &SnapshotService{db: db, path: path, authz: authz}
}

// Export returns the full store.
func (s *SnapshotService) Export(ctx context.Context, p *models.Principal) ([]byte, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return database.ExportSQLite(ctx, s.db, s.path)
}

// Import replaces the full store with blob.
func (s *SnapshotService) Import(ctx context.Context, p *models.Principal, blob []byte) error {
	if err := s.authorize(p); err != nil {
		return err
	}
	if s.path == "" {
		return apperr.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return database.ImportSQLite(ctx, s.db, blob)
}

func (s *SnapshotService) authorize(p *models.Principal) error {
	if p == nil {
		return apperr.ErrUnauthenticated
	}
	if !s.authz.IsAdmin(p) {
		return apperr.ErrForbidden
	}
	return nil
}
