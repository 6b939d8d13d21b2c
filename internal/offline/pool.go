package offline

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

const (
	defaultBatchSize = 100
	defaultTokenTTL  = 24 * time.Hour
)

// Pool with sensible defaults
type Config struct {
	// Secret key to sign offline tokens
	// Required to be set
	PoolKey string

	// Tokens issued per sync
	// If not set than default is used
	BatchSize int

	// Offline token lifetime
	// If not set than default is used
	TokenTTL time.Duration
}

// Pool is the device-local set of pre-issued single-use offline
// authorization tokens. Consumed entries stay recorded until reconciliation
// clears them; both sets survive process restarts through the Store.
type Pool struct {
	key       []byte
	batchSize int
	tokenTTL  time.Duration
	store     Store

	mu    sync.Mutex
	state State
}

func NewPool(cfg Config, store Store) (*Pool, error) {
	if cfg.PoolKey == "" {
		return nil, errors.New("pool key must not be empty")
	}
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("can't load offline pool state: %w", err)
	}

	return &Pool{
		key:       []byte(cfg.PoolKey),
		batchSize: cfg.BatchSize,
		tokenTTL:  cfg.TokenTTL,
		store:     store,
		state:     state,
	}, nil
}

// Sync issues a fresh token batch and snapshots the color seeds of the passes
// the device may need to check while disconnected.
// The previous issued set is replaced wholesale: unused tokens from an earlier
// sync are discarded. Consumed entries awaiting reconciliation are kept.
func (p *Pool) Sync(now time.Time, seeds map[uuid.UUID]string) ([]models.OfflineToken, error) {
	issued := make([]models.OfflineToken, 0, p.batchSize)
	for range p.batchSize {
		iat := now.Unix()
		exp := now.Add(p.tokenTTL).Unix()
		jti := uuid.New()

		issued = append(issued, models.OfflineToken{
			JTI:       jti,
			IssuedAt:  iat,
			ExpiresAt: exp,
			Signature: Sign(p.key, jti, iat, exp),
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.state
	p.state.Issued = issued
	p.state.Seeds = make(map[uuid.UUID]string, len(seeds))
	for passID, seed := range seeds {
		p.state.Seeds[passID] = seed
	}

	if err := p.store.Save(p.state); err != nil {
		p.state = prev
		return nil, err
	}

	return issued, nil
}

// Consume picks an unused, unexpired token, binds the pass to it and persists
// the use before returning. Exhausted pool returns ErrOfflinePoolExhausted:
// that is the hard cap on offline-validated trips between syncs.
func (p *Pool) Consume(passID uuid.UUID, now time.Time) (models.OfflineToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	used := make(map[uuid.UUID]struct{}, len(p.state.Used))
	for _, u := range p.state.Used {
		used[u.JTI] = struct{}{}
	}

	for _, token := range p.state.Issued {
		if _, ok := used[token.JTI]; ok {
			continue
		}
		if token.ExpiresAt < now.Unix() {
			continue
		}

		prev := p.state.Used
		p.state.Used = append(p.state.Used, models.UsedOfflineToken{
			JTI:    token.JTI,
			PassID: passID,
			UsedAt: now,
		})

		if err := p.store.Save(p.state); err != nil {
			p.state.Used = prev
			return models.OfflineToken{}, err
		}

		return token, nil
	}

	return models.OfflineToken{}, apperrors.ErrOfflinePoolExhausted
}

// Used returns a copy of the consumed entries awaiting reconciliation
func (p *Pool) Used() []models.UsedOfflineToken {
	p.mu.Lock()
	defer p.mu.Unlock()

	used := make([]models.UsedOfflineToken, len(p.state.Used))
	copy(used, p.state.Used)
	return used
}

// Remaining reports how many tokens are still consumable at 'now'
func (p *Pool) Remaining(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	used := make(map[uuid.UUID]struct{}, len(p.state.Used))
	for _, u := range p.state.Used {
		used[u.JTI] = struct{}{}
	}

	n := 0
	for _, token := range p.state.Issued {
		if _, ok := used[token.JTI]; ok {
			continue
		}
		if token.ExpiresAt < now.Unix() {
			continue
		}
		n++
	}
	return n
}

// Seed returns the snapshotted color seed for the pass. A pass the device
// never synced returns ErrSeedNotInSnapshot.
func (p *Pool) Seed(passID uuid.UUID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seed, ok := p.state.Seeds[passID]
	if !ok {
		return "", apperrors.ErrSeedNotInSnapshot
	}
	return seed, nil
}

// Clear drops all local state after a fully successful reconciliation
func (p *Pool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.state
	p.state = State{Seeds: make(map[uuid.UUID]string)}

	if err := p.store.Save(p.state); err != nil {
		p.state = prev
		return err
	}
	return nil
}

// signingPayload fixes the byte layout the offline signature covers
type signingPayload struct {
	JTI       uuid.UUID `json:"jti"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}

// Sign computes the offline token signature over the canonical {jti, iat, exp} JSON
func Sign(key []byte, jti uuid.UUID, iat int64, exp int64) string {
	serialized, _ := json.Marshal(signingPayload{JTI: jti, IssuedAt: iat, ExpiresAt: exp})

	mac := hmac.New(sha256.New, key)
	mac.Write(serialized)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks an offline token signature with constant-time comparison.
// A signature mismatch returns ErrOfflineTokenInvalid.
func Verify(key []byte, token models.OfflineToken) error {
	expected := Sign(key, token.JTI, token.IssuedAt, token.ExpiresAt)
	if !hmac.Equal([]byte(token.Signature), []byte(expected)) {
		return apperrors.ErrOfflineTokenInvalid
	}
	return nil
}
