package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// revokedTokenRetention is how long revoked refresh tokens are kept for inspection
const revokedTokenRetention = 7 * 24 * time.Hour

// UserCleanupService permanently removes withdrawn accounts once their
// grace period has passed, and prunes dead refresh tokens.
type UserCleanupService struct {
	users  UserStore
	tokens RefreshTokenStore
	grace  time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewUserCleanupService creates a new cleanup service
func NewUserCleanupService(users UserStore, tokens RefreshTokenStore, grace time.Duration, logger *logrus.Logger) *UserCleanupService {
	return &UserCleanupService{
		users:  users,
		tokens: tokens,
		grace:  grace,
		logger: logger,
		now:    time.Now,
	}
}

// Cutoff is the deletion time before which withdrawn accounts are purged
func (s *UserCleanupService) Cutoff() time.Time {
	return s.now().Add(-s.grace)
}

// CountExpired reports how many accounts a purge would remove
func (s *UserCleanupService) CountExpired(ctx context.Context) (int64, error) {
	return s.users.CountDeletedBefore(ctx, s.Cutoff())
}

// PurgeExpired hard-deletes accounts withdrawn before the cutoff.
// Their reservations and payments are removed with them.
func (s *UserCleanupService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	purged, err := s.users.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge withdrawn users: %w", err)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"cutoff": cutoff,
		"purged": purged,
	})
	if purged == 0 {
		entry.Debug("No withdrawn users to purge")
	} else {
		entry.Info("Purged withdrawn users")
	}
	return purged, nil
}

// CleanupTokens deletes expired refresh tokens and old revoked ones
func (s *UserCleanupService) CleanupTokens(ctx context.Context) (int64, error) {
	now := s.now()
	removed, err := s.tokens.Cleanup(ctx, now, now.Add(-revokedTokenRetention))
	if err != nil {
		return 0, err
	}
	s.logger.WithField("removed", removed).Debug("Refresh tokens cleaned up")
	return removed, nil
}
