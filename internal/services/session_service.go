package services

import (
	"context"

	"comparador/internal/apperr"
	"comparador/internal/models"
	"comparador/internal/sessions"
)

// SessionService binds authenticated users to transport session ids.
type SessionService struct {
	sessions sessions.Store
	auth     *AuthService
}

// NewSessionService creates a new SessionService.
func NewSessionService(store sessions.Store, auth *AuthService) *SessionService {
	return &SessionService{sessions: store, auth: auth}
}

// Login authenticates and records the user on sid. Any cart already on sid is kept.
func (s *SessionService) Login(ctx context.Context, sid, username, password string) (*models.Principal, error) {
	user, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	state, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	state.UserID = user.ID
	if err := s.sessions.Save(ctx, sid, state); err != nil {
		return nil, err
	}
	return s.auth.principalOf(user), nil
}

// Current resolves the principal of sid, re-reading the user from the credential store.
func (s *SessionService) Current(ctx context.Context, sid string) (*models.Principal, error) {
	if sid == "" {
		return nil, apperr.ErrUnauthenticated
	}
	state, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if state.UserID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return s.auth.Principal(ctx, state.UserID)
}

// Rotate moves the state held under oldSID to newSID.
func (s *SessionService) Rotate(ctx context.Context, oldSID, newSID string) error {
	if oldSID == newSID {
		return nil
	}
	state, err := s.sessions.Load(ctx, oldSID)
	if err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, newSID, state); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, oldSID)
}

// Logout drops everything bound to sid: the principal and the cart.
func (s *SessionService) Logout(ctx context.Context, sid string) error {
	return s.sessions.Delete(ctx, sid)
}
