package qrtoken

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/models"
)

// Issuer hands out signed QR tokens and keeps a short per-pass cache so
// repeated requests within the payload window return the same token.
// Cached entries expire together with the payload itself.
type Issuer struct {
	codec *Codec

	mu    sync.Mutex
	cache map[uuid.UUID]models.IssuedQRToken
}

func NewIssuer(codec *Codec) *Issuer {
	return &Issuer{
		codec: codec,
		cache: make(map[uuid.UUID]models.IssuedQRToken),
	}
}

func (i *Issuer) Issue(passID uuid.UUID, colorToken string, now time.Time) (models.IssuedQRToken, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	// Reuse cached token while it is fresh and still claims the current color
	if cached, ok := i.cache[passID]; ok {
		if now.Before(cached.ExpiresAt) && cached.Payload.ColorToken == colorToken {
			return cached, nil
		}
		delete(i.cache, passID)
	}

	issued, err := i.codec.Issue(passID, colorToken, now)
	if err != nil {
		return models.IssuedQRToken{}, err
	}

	i.cache[passID] = issued
	return issued, nil
}

// Drop expired entries. Called opportunistically by the owning service
func (i *Issuer) Evict(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for passID, cached := range i.cache {
		if !now.Before(cached.ExpiresAt) {
			delete(i.cache, passID)
		}
	}
}
