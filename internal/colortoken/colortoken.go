package colortoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

const defaultWindow = 5 * time.Minute

// Generator with sensible defaults
type Config struct {
	// Secret key used to derive color tokens
	// Required to be set, must differ from the payload signing key
	DerivationKey string

	// Window size for the rolling token
	// If not set than default is used
	Window time.Duration
}

// Generator derives the rolling visual color token for a pass.
//
// The color is a deterministic function of (pass id, per-pass seed, time
// window): it serves as a low-bandwidth freshness signal independent of the
// signed payload's own expiry. Two derivations within one window are byte
// identical, derivations across a window boundary differ.
type Generator struct {
	key    []byte
	window time.Duration
}

func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.DerivationKey == "" {
		return nil, errors.New("derivation key must not be empty")
	}
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}

	return &Generator{
		key:    []byte(cfg.DerivationKey),
		window: cfg.Window,
	}, nil
}

// Derive the color token for the window containing 'now'.
// External form: "rgb(r,g,b)", each channel 0-255 decimal.
func (g *Generator) Derive(passID string, colorSeed string, now time.Time) string {
	window := now.Unix() / int64(g.window.Seconds())

	mac := hmac.New(sha256.New, g.key)
	fmt.Fprintf(mac, "%s_%s_%d", passID, colorSeed, window)
	digest := mac.Sum(nil)

	return fmt.Sprintf("rgb(%d,%d,%d)", digest[0], digest[1], digest[2])
}

// Matches reports whether the presented color equals the expected one for the
// current window. A mismatch near a window boundary is a staleness signal, not
// tampering: callers should prompt the holder to refresh.
func (g *Generator) Matches(passID string, colorSeed string, now time.Time, presented string) bool {
	return g.Derive(passID, colorSeed, now) == presented
}
