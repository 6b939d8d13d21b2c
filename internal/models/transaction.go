package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
)

// Transaction records a pass purchase
type Transaction struct {
	ID        uuid.UUID
	PassID    uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	Status    string
	CreatedAt time.Time
}
