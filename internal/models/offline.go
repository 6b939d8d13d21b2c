package models

import (
	"time"

	"github.com/google/uuid"
)

// OfflineToken is one pre-issued, single-use permission to accept a validation
// without contacting the ledger. Issued in batches before a device goes
// offline; the signature covers {jti, iat, exp} with the offline pool key.
type OfflineToken struct {
	JTI       uuid.UUID `json:"jti"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
	Signature string    `json:"signature"`
}

// UsedOfflineToken records a consumed offline slot. The pass is bound at
// consumption time so reconciliation can attribute usage to it.
type UsedOfflineToken struct {
	JTI    uuid.UUID `json:"jti"`
	PassID uuid.UUID `json:"pass_id"`
	UsedAt time.Time `json:"used_at"`
}
