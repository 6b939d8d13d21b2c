package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

type DeviceRepo struct {
	DB DBTX
}

const createDevice = `-- name: CreateDevice
INSERT INTO devices (id, name, hashed_secret, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, name, hashed_secret, created_at
`

func (r *DeviceRepo) CreateDevice(ctx context.Context, name string, hashedSecret string) (models.Device, error) {
	rows, _ := r.DB.Query(ctx, createDevice, uuid.New(), name, hashedSecret, time.Now())
	device, err := pgx.CollectOneRow(rows, rowToDevice)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return device, apperrors.ErrDeviceAlreadyExists
		}
		return device, fmt.Errorf("db error: %w", err)
	}

	return device, nil
}

const getDeviceByID = `-- name: GetDeviceByID
SELECT id, name, hashed_secret, created_at FROM devices
WHERE id = $1
`

func (r *DeviceRepo) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (models.Device, error) {
	rows, _ := r.DB.Query(ctx, getDeviceByID, deviceID)
	return collectDevice(rows)
}

const getDeviceByName = `-- name: GetDeviceByName
SELECT id, name, hashed_secret, created_at FROM devices
WHERE name = $1
`

func (r *DeviceRepo) GetDeviceByName(ctx context.Context, name string) (models.Device, error) {
	rows, _ := r.DB.Query(ctx, getDeviceByName, name)
	return collectDevice(rows)
}

func collectDevice(rows pgx.Rows) (models.Device, error) {
	device, err := pgx.CollectOneRow(rows, rowToDevice)

	switch {
	case err == nil:
		return device, nil
	case errors.Is(err, pgx.ErrNoRows):
		return device, apperrors.ErrDeviceNotFound
	default:
		return device, fmt.Errorf("db error: %w", err)
	}
}

func rowToDevice(row pgx.CollectableRow) (models.Device, error) {
	var d models.Device
	err := row.Scan(&d.ID, &d.Name, &d.HashedSecret, &d.CreatedAt)
	return d, err
}
