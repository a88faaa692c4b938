package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/models"
	"comparador/internal/repositories"
	"comparador/internal/security"
)

// DefaultResetTokenTTL is the lifetime of a reset token.
const DefaultResetTokenTTL = time.Hour

// TokenService issues and redeems single-use password reset tokens.
//
// A token is Issued until it is either Redeemed (row deleted, password changed) or found
// Expired on presentation (row deleted, password unchanged). Sibling tokens of the same user
// stay valid independently.
type TokenService struct {
	store  repositories.Store
	hasher security.PasswordHasher
	ttl    time.Duration
	now    func() time.Time
	events EventPublisher
	log    *slog.Logger
}

// NewTokenService creates a new TokenService. events may be nil.
func NewTokenService(store repositories.Store, hasher security.PasswordHasher, ttl time.Duration, events EventPublisher, log *slog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &TokenService{
		store:  store,
		hasher: hasher,
		ttl:    ttl,
		now:    time.Now,
		events: events,
		log:    log,
	}
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue creates a token for userID expiring ttl from now.
func (s *TokenService) Issue(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	value, err := security.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	token := &models.PasswordResetToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.store.Tokens().Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// RequestReset issues a token for the account registered with email and announces it to the
// mailer. An unknown email fails with apperr.ErrNotFound; callers that must not reveal which
// emails exist answer both cases the same way.
func (s *TokenService) RequestReset(ctx context.Context, email string) (*models.PasswordResetToken, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	publishEvent(s.log, s.events, EventPasswordResetRequested, map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
	return token, nil
}

// Redeem sets newPassword for the owner of token and deletes the token. Unknown or already
// used tokens fail with apperr.ErrInvalidToken; a token past its expiry is deleted and fails
// with apperr.ErrExpiredToken. Of concurrent redemptions of one token at most one succeeds.
func (s *TokenService) Redeem(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.ErrInvalidToken
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	now := s.now()
	expired := false
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		row, err := tx.Tokens().GetByToken(ctx, token)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrInvalidToken
		}
		if err != nil {
			return err
		}

		if err := tx.Tokens().Delete(ctx, row.ID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.ErrInvalidToken
			}
			return err
		}

		if row.Expired(now) {
			expired = true
			return nil
		}
		return tx.Users().UpdatePassword(ctx, row.UserID, digest)
	})
	if err != nil {
		return err
	}
	if expired {
		return apperr.ErrExpiredToken
	}
	return nil
}

// PurgeExpired deletes tokens already past their expiry. Expiry is still enforced on
// presentation, so running this is optional.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Tokens().DeleteExpired(ctx, s.now())
}

// RunSweeper calls PurgeExpired every interval until ctx is done.
func (s *TokenService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Error("failed to purge expired reset tokens", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("purged expired reset tokens", "count", n)
			}
		}
	}
}
