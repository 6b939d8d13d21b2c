package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

type DeviceTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: Save device refresh token
INSERT INTO device_refresh_tokens (id, device_id, token, created_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

func (r *DeviceTokenRepo) Save(ctx context.Context, token models.DeviceRefreshToken) error {
	rows, _ := r.DB.Query(ctx, saveToken, token.ID, token.DeviceID, token.Token, token.CreatedAt, token.ExpiresAt, token.UsedAt)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getToken = `-- name: Get token by string itself
SELECT id, device_id, created_at, expires_at, used_at
FROM device_refresh_tokens
WHERE token = $1
`

// Get token
// It should return result even if it expired or used already
func (r *DeviceTokenRepo) Get(ctx context.Context, tokenString string) (models.DeviceRefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, tokenString)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.DeviceRefreshToken, error) {
		t := models.DeviceRefreshToken{Token: tokenString}
		err := row.Scan(&t.ID, &t.DeviceID, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const markTokenUsed = `-- name: Mark token used if it not used
UPDATE device_refresh_tokens
SET used_at = COALESCE(used_at, $2)
WHERE token = $1
RETURNING used_at
`

// Mark token as used
// Idempotent: an already used token keeps its original usedAt and the call
// returns apperrors.ErrRefreshTokenIsUsed
func (r *DeviceTokenRepo) MarkUsed(ctx context.Context, tokenString string) (time.Time, error) {
	// Truncated to what timestamptz can hold, otherwise the returned value
	// never equals the one sent
	now := time.Now().Truncate(time.Microsecond)
	rows, _ := r.DB.Query(ctx, markTokenUsed, tokenString, now)
	usedAt, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	switch {
	case err == nil && usedAt.Equal(now):
		return usedAt, nil
	case err == nil: // usedAt != now == token is used already
		return usedAt, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenIsUsed)
	case errors.Is(err, pgx.ErrNoRows):
		return usedAt, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return usedAt, fmt.Errorf("db error: %w", err)
	}
}
