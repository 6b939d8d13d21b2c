package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification status of a presented QR token
const (
	TokenStatusValid            = "VALID"
	TokenStatusExpired          = "EXPIRED"
	TokenStatusInvalidSignature = "INVALID_SIGNATURE"
	TokenStatusInvalidFormat    = "INVALID_FORMAT"
)

// AuthorizationPayload is the decoded content of a presented QR token.
// Field names and order are the wire contract: the HMAC is computed over the
// exact JSON serialization, so every device must produce identical bytes.
type AuthorizationPayload struct {
	PassID     uuid.UUID `json:"pass_id"`
	IssuedAt   int64     `json:"iat"`
	ExpiresAt  int64     `json:"exp"`
	Nonce      string    `json:"nonce"`
	ColorToken string    `json:"color_token"`
}

// IssuedQRToken is the signed wire token together with the payload it carries.
// It lives only between generation and presentation; the issuer keeps it in a
// short per-pass cache that expires with the payload itself.
type IssuedQRToken struct {
	Token     string
	Payload   AuthorizationPayload
	ExpiresAt time.Time
}
