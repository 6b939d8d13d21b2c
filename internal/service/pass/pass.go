package pass

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/farepass/internal/colortoken"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/qrtoken"
	"github.com/nkiryanov/farepass/internal/repository"
)

const defaultCurrency = "INR"

var ErrUnknownPassType = errors.New("unknown pass type")

// Service issues passes and their presentation tokens
type Service struct {
	storage repository.Storage
	colors  *colortoken.Generator
	issuer  *qrtoken.Issuer
}

func NewService(storage repository.Storage, colors *colortoken.Generator, issuer *qrtoken.Issuer) *Service {
	return &Service{
		storage: storage,
		colors:  colors,
		issuer:  issuer,
	}
}

// Purchase creates a pass of the requested type together with its completed
// purchase transaction, both in one db transaction.
func (s *Service) Purchase(ctx context.Context, passType string, amount decimal.Decimal, currency string) (models.Pass, error) {
	switch passType {
	case models.PassTypeSingle, models.PassTypeDaily, models.PassTypeWeekly, models.PassTypeMonthly:
	default:
		return models.Pass{}, fmt.Errorf("%w: %q", ErrUnknownPassType, passType)
	}

	if currency == "" {
		currency = defaultCurrency
	}

	seed, err := randomSeed()
	if err != nil {
		return models.Pass{}, fmt.Errorf("can't generate color seed. Err: %w", err)
	}

	now := time.Now()
	balance := models.Balance{PassType: passType}
	if passType == models.PassTypeSingle {
		balance.Remaining = 1
	}

	pass := models.Pass{
		ID:         uuid.New(),
		PassType:   passType,
		Status:     models.PassStatusActive,
		ValidFrom:  now,
		ValidUntil: now.Add(models.PassValidity(passType)),
		Balance:    balance,
		ColorSeed:  seed,
		CreatedAt:  now,
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		created, err := st.Pass().CreatePass(ctx, pass)
		if err != nil {
			return err
		}
		pass = created

		_, err = st.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:        uuid.New(),
			PassID:    pass.ID,
			Amount:    amount,
			Currency:  currency,
			Status:    models.TransactionStatusCompleted,
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return models.Pass{}, fmt.Errorf("can't create pass. Err: %w", err)
	}

	return pass, nil
}

func (s *Service) GetPass(ctx context.Context, passID uuid.UUID) (models.Pass, error) {
	return s.storage.Pass().GetPass(ctx, passID)
}

// IssueToken produces the signed QR token for a pass carrying the color token
// of the current window. Repeated calls within the payload window return the
// cached token until the color rolls over.
func (s *Service) IssueToken(ctx context.Context, passID uuid.UUID) (models.IssuedQRToken, error) {
	pass, err := s.storage.Pass().GetPass(ctx, passID)
	if err != nil {
		return models.IssuedQRToken{}, err
	}

	now := time.Now()
	color := s.colors.Derive(pass.ID.String(), pass.ColorSeed, now)

	issued, err := s.issuer.Issue(pass.ID, color, now)
	if err != nil {
		return models.IssuedQRToken{}, fmt.Errorf("can't issue qr token. Err: %w", err)
	}

	return issued, nil
}

// SeedSnapshot returns the color seeds a device needs to verify freshness
// while offline. Only ACTIVE passes make it into the snapshot.
func (s *Service) SeedSnapshot(ctx context.Context, passIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	seeds := make(map[uuid.UUID]string, len(passIDs))

	for _, passID := range passIDs {
		pass, err := s.storage.Pass().GetPass(ctx, passID)
		if err != nil {
			return nil, err
		}
		if pass.Status != models.PassStatusActive {
			continue
		}
		seeds[pass.ID] = pass.ColorSeed
	}

	return seeds, nil
}

func randomSeed() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
