package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"comparador/internal/apperr"
	"comparador/internal/models"
	"comparador/internal/repositories"
	"comparador/internal/security"
)

// AuthService handles registration, credential checks and principal resolution.
type AuthService struct {
	store  repositories.Store
	hasher security.PasswordHasher
	authz  *Authorizer
	events EventPublisher
	log    *slog.Logger

	decoyOnce   sync.Once
	decoyDigest string
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(store repositories.Store, hasher security.PasswordHasher, authz *Authorizer, events EventPublisher, log *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		authz:  authz,
		events: events,
		log:    log,
	}
}

// Register creates a user. A taken username or email fails with apperr.ErrConflict and
// leaves the existing row untouched.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	user := &models.User{Username: username, Email: email, PasswordHash: digest}
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByUsername(ctx, username); err == nil {
			return fmt.Errorf("username '%s' already taken: %w", username, apperr.ErrConflict)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("email '%s' already registered: %w", email, apperr.ErrConflict)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.log, s.events, EventUserRegistered, map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
	return user, nil
}

// Authenticate checks username and password. Unknown users and wrong passwords both fail
// with apperr.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		s.hasher.Verify(password, s.decoy())
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

// UpdatePassword overwrites the digest of userID unconditionally. Callers authorize the change.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	return s.store.Users().UpdatePassword(ctx, userID, digest)
}

// Principal re-reads userID from the store. A vanished user yields apperr.ErrUnauthenticated.
func (s *AuthService) Principal(ctx context.Context, userID string) (*models.Principal, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return s.principalOf(user), nil
}

func (s *AuthService) principalOf(user *models.User) *models.Principal {
	return &models.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     s.authz.RoleOf(user.Username),
	}
}

// decoy is a digest verified against when the username is unknown, so both failure paths
// spend a hash comparison.
func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash("decoy-password")
		if err == nil {
			s.decoyDigest = digest
		}
	})
	return s.decoyDigest
}
