// Package sessions keeps server-side state keyed by an opaque transport session id.
package sessions

import (
	"context"

	"comparador/internal/models"
)

// Store persists SessionState by session id. Load never fails for an unknown id: it returns
// an empty anonymous state. Concurrent saves for the same id are last-write-wins.
type Store interface {
	Load(ctx context.Context, sid string) (*models.SessionState, error)
	Save(ctx context.Context, sid string, state *models.SessionState) error
	Delete(ctx context.Context, sid string) error
}
