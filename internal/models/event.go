package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ValidationMethodOnline  = "ONLINE"
	ValidationMethodOffline = "OFFLINE"
)

const (
	ValidationResultSuccess = "SUCCESS"
	ValidationResultFailure = "FAILURE"
)

// ValidationEvent is an append-only ledger record of a validation attempt
type ValidationEvent struct {
	ID        uuid.UUID
	PassID    uuid.UUID
	DeviceID  uuid.UUID
	Lat       float64
	Lng       float64
	Method    string
	Result    string
	CreatedAt time.Time
}
