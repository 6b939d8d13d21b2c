package qrtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/models"
)

const defaultPayloadTTL = 10 * time.Minute

// Codec with sensible defaults
type Config struct {
	// Secret key to sign QR payloads
	// Required to be set
	SigningKey string

	// Payload lifetime
	// If not set than default is used
	PayloadTTL time.Duration
}

// Codec signs and verifies QR authorization payloads.
// Wire format: base64(JSON payload) + "." + hex(HMAC-SHA256 over the JSON bytes).
type Codec struct {
	key        []byte
	payloadTTL time.Duration
}

func NewCodec(cfg Config) (*Codec, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("signing key must not be empty")
	}
	if cfg.PayloadTTL == 0 {
		cfg.PayloadTTL = defaultPayloadTTL
	}

	return &Codec{
		key:        []byte(cfg.SigningKey),
		payloadTTL: cfg.PayloadTTL,
	}, nil
}

// Build payload for the pass and return it signed
func (c *Codec) Issue(passID uuid.UUID, colorToken string, now time.Time) (models.IssuedQRToken, error) {
	nonce, err := randomNonce()
	if err != nil {
		return models.IssuedQRToken{}, err
	}

	payload := models.AuthorizationPayload{
		PassID:     passID,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(c.payloadTTL).Unix(),
		Nonce:      nonce,
		ColorToken: colorToken,
	}

	token, err := c.Encode(payload)
	if err != nil {
		return models.IssuedQRToken{}, err
	}

	return models.IssuedQRToken{
		Token:     token,
		Payload:   payload,
		ExpiresAt: time.Unix(payload.ExpiresAt, 0),
	}, nil
}

func (c *Codec) Encode(payload models.AuthorizationPayload) (string, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(serialized) + "." + c.sign(serialized), nil
}

// Decode verifies and parses a presented token.
//
// The order is security critical: the signature is checked over the raw bytes
// before anything is parsed, and on signature mismatch the payload is never
// returned. An expired token returns both the payload and TokenStatusExpired,
// callers may report which pass expired without trusting its authorization.
func (c *Codec) Decode(token string, now time.Time) (*models.AuthorizationPayload, string) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return nil, models.TokenStatusInvalidFormat
	}

	serialized, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, models.TokenStatusInvalidFormat
	}

	expected := c.sign(serialized)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, models.TokenStatusInvalidSignature
	}

	var payload models.AuthorizationPayload
	if err := json.Unmarshal(serialized, &payload); err != nil {
		return nil, models.TokenStatusInvalidFormat
	}

	if payload.ExpiresAt < now.Unix() {
		return &payload, models.TokenStatusExpired
	}

	return &payload, models.TokenStatusValid
}

func (c *Codec) sign(serialized []byte) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(serialized)
	return hex.EncodeToString(mac.Sum(nil))
}

func randomNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
