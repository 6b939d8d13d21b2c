package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a registered validator terminal
type Device struct {
	ID           uuid.UUID
	Name         string
	HashedSecret string
	CreatedAt    time.Time
}

// DeviceRefreshToken is a single-use refresh token issued to a device
type DeviceRefreshToken struct {
	ID        uuid.UUID
	DeviceID  uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time // nil if token not used
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the device auth service
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
