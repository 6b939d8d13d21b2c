package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PassTypeSingle  = "SINGLE"
	PassTypeDaily   = "DAILY"
	PassTypeWeekly  = "WEEKLY"
	PassTypeMonthly = "MONTHLY"
)

const (
	PassStatusActive    = "ACTIVE"
	PassStatusExpired   = "EXPIRED"
	PassStatusSuspended = "SUSPENDED"
)

// Balance is the remaining-trips counter of a pass.
// Time based passes (DAILY, WEEKLY, MONTHLY) are unlimited and carry no counter,
// only SINGLE passes count trips. Keeping the tag explicit avoids the
// "-1 means unlimited" sentinel leaking into validation logic.
type Balance struct {
	PassType  string
	Remaining int
}

func (b Balance) Unlimited() bool {
	return b.PassType != PassTypeSingle
}

// Trips left for SINGLE passes, 0 for unlimited ones
func (b Balance) Trips() int {
	if b.Unlimited() {
		return 0
	}
	return b.Remaining
}

type Pass struct {
	ID         uuid.UUID
	PassType   string
	Status     string
	ValidFrom  time.Time
	ValidUntil time.Time
	Balance    Balance

	// Secret-like seed set at issuance, used to derive the rolling color token.
	// Never sent to validating devices except inside seed snapshots they
	// explicitly sync before going offline.
	ColorSeed string

	CreatedAt time.Time
}

// Validity window length for every pass type
func PassValidity(passType string) time.Duration {
	switch passType {
	case PassTypeWeekly:
		return 7 * 24 * time.Hour
	case PassTypeMonthly:
		return 30 * 24 * time.Hour
	default: // SINGLE and DAILY
		return 24 * time.Hour
	}
}
