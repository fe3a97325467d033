package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hotelpms/hotel-backend/internal/models"
)

const refreshTokenColumns = `id, user_id, token_hash, device_type, ip_address, user_agent,
	created_at, expires_at, last_used_at, revoked, revoked_at`

// RefreshTokenRepository handles refresh token database operations
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db: db,
	}
}

// HashToken creates a SHA-256 hash of the token for storage
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Store records a newly issued refresh token
func (r *RefreshTokenRepository) Store(ctx context.Context, userID uuid.UUID, token string, device models.DeviceInfo, ipAddress, userAgent string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, device_type,
			ip_address, user_agent, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		userID,
		HashToken(token),
		models.NewNullString(device.DeviceType),
		models.NewNullString(ipAddress),
		models.NewNullString(userAgent),
		time.Now(),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// Get retrieves a refresh token record by the raw token value
func (r *RefreshTokenRepository) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	err := r.db.GetContext(ctx, &refreshToken, query, HashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &refreshToken, nil
}

// Revoke revokes a specific refresh token. An unknown or already revoked
// token yields ErrNotFound.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1,
		    last_used_at = $1
		WHERE token_hash = $2 AND revoked = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), HashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return requireRow(result, "failed to revoke token")
}

// RevokeAllForUser revokes every active refresh token of a user
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE user_id = $2 AND revoked = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke all user tokens: %w", err)
	}

	return result.RowsAffected()
}

// RevokeMostRecent revokes the newest active token of a user.
// Used when logout is called without a specific refresh token.
func (r *RefreshTokenRepository) RevokeMostRecent(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE id = (
			SELECT id
			FROM refresh_tokens
			WHERE user_id = $2
			  AND revoked = FALSE
			  AND expires_at > $1
			ORDER BY created_at DESC
			LIMIT 1
		)
	`

	result, err := r.db.ExecContext(ctx, query, now, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke most recent token: %w", err)
	}

	return requireRow(result, "failed to revoke most recent token")
}

// CountActive counts the user's unrevoked, unexpired tokens
func (r *RefreshTokenRepository) CountActive(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
	`

	if err := r.db.GetContext(ctx, &count, query, userID, time.Now()); err != nil {
		return 0, fmt.Errorf("failed to count user tokens: %w", err)
	}

	return count, nil
}

// Cleanup removes expired tokens and tokens revoked before revokedBefore
func (r *RefreshTokenRepository) Cleanup(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
		   OR (revoked = TRUE AND revoked_at < $2)
	`

	result, err := r.db.ExecContext(ctx, query, now, revokedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup refresh tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
