package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/models"
)

// Pass repository interface
type PassRepo interface {
	// Create pass
	CreatePass(ctx context.Context, pass models.Pass) (models.Pass, error)

	// Get pass by id
	// If pass not found must return apperrors.ErrPassNotFound
	GetPass(ctx context.Context, passID uuid.UUID) (models.Pass, error)

	// Atomically decrement the trip balance of a SINGLE pass.
	// Must be a single conditional update: "decrement where balance > 0,
	// return new value". If no row matched must return
	// apperrors.ErrNoBalanceRemaining. Never read-then-write.
	DecrementBalanceIfPositive(ctx context.Context, passID uuid.UUID) (newBalance int, err error)

	// Set pass status
	// If pass not found must return apperrors.ErrPassNotFound
	SetStatus(ctx context.Context, passID uuid.UUID, status string) error
}

// Validation event repository interface (append-only)
type EventRepo interface {
	AppendEvent(ctx context.Context, event models.ValidationEvent) (models.ValidationEvent, error)
}

// Reconciled offline validation records
type OfflineRecordRepo interface {
	// Append one reconciled offline record
	// Must be idempotent on jti: a duplicate must return apperrors.ErrOfflineRecordExists
	AppendReconciledOffline(ctx context.Context, deviceID uuid.UUID, used models.UsedOfflineToken) error
}

// Validator device repository interface
type DeviceRepo interface {
	// Create device
	// If device with the name exists already must return apperrors.ErrDeviceAlreadyExists
	CreateDevice(ctx context.Context, name string, hashedSecret string) (models.Device, error)

	// Get device by id or name
	// If device not found must return apperrors.ErrDeviceNotFound
	GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (models.Device, error)
	GetDeviceByName(ctx context.Context, name string) (models.Device, error)
}

// Device refresh token repository interface
type DeviceTokenRepo interface {
	// Save token in repository
	Save(ctx context.Context, token models.DeviceRefreshToken) error

	// Return the token if it exists
	// If token not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.DeviceRefreshToken, error)

	// Mark token as used
	// Must be idempotent: if the token is already used must return
	// apperrors.ErrRefreshTokenIsUsed and must not overwrite the existing usedAt
	MarkUsed(ctx context.Context, tokenString string) (usedAt time.Time, err error)
}

// Pass purchase transactions
type TransactionRepo interface {
	CreateTransaction(ctx context.Context, tr models.Transaction) (models.Transaction, error)
	ListByPass(ctx context.Context, passID uuid.UUID) ([]models.Transaction, error)
}

// Storage aggregates every repository and allows running them in one transaction
type Storage interface {
	Pass() PassRepo
	Event() EventRepo
	OfflineRecord() OfflineRecordRepo
	Device() DeviceRepo
	DeviceToken() DeviceTokenRepo
	Transaction() TransactionRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
