package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/colortoken"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/offline"
	"github.com/nkiryanov/farepass/internal/qrtoken"
	"github.com/nkiryanov/farepass/internal/repository"
)

const (
	DecisionAccepted     = "ACCEPTED"
	DecisionRejected     = "REJECTED"
	DecisionUndetermined = "UNDETERMINED"
)

// Rejection reasons. Format and signature failures share one user-visible
// reason on purpose: an attacker learns nothing about which check failed.
const (
	ReasonTampered            = "tampered"
	ReasonTokenExpired        = "token expired"
	ReasonStaleColor          = "stale color token"
	ReasonNoOfflineCapacity   = "no offline capacity"
	ReasonPassNotFound        = "pass not found"
	ReasonPassExpired         = "pass expired"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonLedgerUnavailable   = "ledger unavailable"
)

// Request is one presented token plus the device context it arrived with
type Request struct {
	Token          string
	PresentedColor string
	Mode           string // models.ValidationMethodOnline or Offline
	DeviceID       uuid.UUID
	Lat            float64
	Lng            float64
}

// Outcome is the final decision for one validation attempt.
//
// Decision UNDETERMINED means the ledger could not answer: the engine never
// maps an infrastructure failure to accept or reject, since both are wrong.
// Recorded is false for an online accept whose event append failed, the
// "succeeded locally but was not recorded" case the caller must arbitrate.
type Outcome struct {
	Decision string
	Reason   string
	Method   string

	Pass      *models.Pass
	Remaining models.Balance

	Recorded   bool
	OfflineJTI uuid.UUID
}

func rejected(method string, reason string) Outcome {
	return Outcome{Decision: DecisionRejected, Reason: reason, Method: method}
}

func undetermined(method string) Outcome {
	return Outcome{Decision: DecisionUndetermined, Reason: ReasonLedgerUnavailable, Method: method}
}

// Service is the validation state machine. It orchestrates the codec, the
// color generator, the offline pool and the ledger into a single
// accept/reject decision with the associated pass mutation applied exactly once.
type Service struct {
	codec   *qrtoken.Codec
	colors  *colortoken.Generator
	pool    *offline.Pool
	storage repository.Storage
	logger  logger.Logger

	// now is swappable for tests
	now func() time.Time
}

func NewService(codec *qrtoken.Codec, colors *colortoken.Generator, pool *offline.Pool, storage repository.Storage, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		codec:   codec,
		colors:  colors,
		pool:    pool,
		storage: storage,
		logger:  l,
		now:     time.Now,
	}
}

// Validate decides ACCEPT/REJECT for one presented token
func (s *Service) Validate(ctx context.Context, req Request) Outcome {
	now := s.now()

	payload, status := s.codec.Decode(req.Token, now)
	switch status {
	case models.TokenStatusInvalidFormat:
		s.logger.Info("rejected malformed token", "device_id", req.DeviceID)
		return rejected(req.Mode, ReasonTampered)
	case models.TokenStatusInvalidSignature:
		// Logged apart from format errors: possible tampering, audit wants to know
		s.logger.Warn("rejected token with invalid signature", "device_id", req.DeviceID)
		return rejected(req.Mode, ReasonTampered)
	case models.TokenStatusExpired:
		s.logger.Info("rejected expired token", "device_id", req.DeviceID, "pass_id", payload.PassID)
		return rejected(req.Mode, ReasonTokenExpired)
	}

	if req.Mode == models.ValidationMethodOffline {
		return s.validateOffline(req, payload, now)
	}
	return s.validateOnline(ctx, req, payload, now)
}

// Offline: freshness check against the synced seed snapshot, then one slot
// from the local pool. No ledger access, usage is recorded locally for
// reconciliation.
func (s *Service) validateOffline(req Request, payload *models.AuthorizationPayload, now time.Time) Outcome {
	seed, err := s.pool.Seed(payload.PassID)
	if errors.Is(err, apperrors.ErrSeedNotInSnapshot) {
		// Can't verify freshness for a pass the device never synced; conservative reject
		s.logger.Info("pass not in offline seed snapshot", "pass_id", payload.PassID)
		return rejected(req.Mode, ReasonStaleColor)
	}

	if !s.colors.Matches(payload.PassID.String(), seed, now, req.PresentedColor) {
		s.logger.Info("stale color token", "pass_id", payload.PassID, "method", req.Mode)
		return rejected(req.Mode, ReasonStaleColor)
	}

	token, err := s.pool.Consume(payload.PassID, now)
	switch {
	case errors.Is(err, apperrors.ErrOfflinePoolExhausted):
		return rejected(req.Mode, ReasonNoOfflineCapacity)
	case err != nil:
		s.logger.Error("offline pool failure", "error", err)
		return undetermined(req.Mode)
	}

	s.logger.Info("accepted offline", "pass_id", payload.PassID, "jti", token.JTI)
	return Outcome{
		Decision:   DecisionAccepted,
		Method:     req.Mode,
		OfflineJTI: token.JTI,
	}
}

func (s *Service) validateOnline(ctx context.Context, req Request, payload *models.AuthorizationPayload, now time.Time) Outcome {
	pass, err := s.storage.Pass().GetPass(ctx, payload.PassID)
	switch {
	case errors.Is(err, apperrors.ErrPassNotFound):
		return rejected(req.Mode, ReasonPassNotFound)
	case err != nil:
		s.logger.Error("ledger unavailable on pass fetch", "error", err)
		return undetermined(req.Mode)
	}

	if !s.colors.Matches(pass.ID.String(), pass.ColorSeed, now, req.PresentedColor) {
		// Staleness, not forgery: the signature already checked out.
		// The holder should refresh the code.
		s.logger.Info("stale color token", "pass_id", pass.ID, "method", req.Mode)
		return rejected(req.Mode, ReasonStaleColor)
	}

	if pass.Status != models.PassStatusActive {
		return rejected(req.Mode, "pass "+strings.ToLower(pass.Status))
	}

	if pass.ValidUntil.Before(now) {
		if err := s.storage.Pass().SetStatus(ctx, pass.ID, models.PassStatusExpired); err != nil {
			s.logger.Error("can't mark pass expired", "pass_id", pass.ID, "error", err)
		}
		return rejected(req.Mode, ReasonPassExpired)
	}

	remaining := pass.Balance

	if pass.PassType == models.PassTypeSingle {
		newBalance, err := s.storage.Pass().DecrementBalanceIfPositive(ctx, pass.ID)
		switch {
		case errors.Is(err, apperrors.ErrNoBalanceRemaining):
			return rejected(req.Mode, ReasonInsufficientBalance)
		case err != nil:
			s.logger.Error("ledger unavailable on balance decrement", "error", err)
			return undetermined(req.Mode)
		}

		remaining = models.Balance{PassType: pass.PassType, Remaining: newBalance}
		if newBalance <= 0 {
			if err := s.storage.Pass().SetStatus(ctx, pass.ID, models.PassStatusExpired); err != nil {
				s.logger.Error("can't mark exhausted pass expired", "pass_id", pass.ID, "error", err)
			}
		}
	}

	outcome := Outcome{
		Decision:  DecisionAccepted,
		Method:    req.Mode,
		Pass:      &pass,
		Remaining: remaining,
		Recorded:  true,
	}

	_, err = s.storage.Event().AppendEvent(ctx, models.ValidationEvent{
		ID:        uuid.New(),
		PassID:    pass.ID,
		DeviceID:  req.DeviceID,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Method:    models.ValidationMethodOnline,
		Result:    models.ValidationResultSuccess,
		CreatedAt: now,
	})
	if err != nil {
		// Mutation already happened, the decision stands; the caller decides
		// whether an unrecorded accept is good enough
		s.logger.Error("validation accepted but event not recorded", "pass_id", pass.ID, "error", err)
		outcome.Recorded = false
	}

	return outcome
}

// CommitOfflineValidation is the ledger side of reconciliation: one reconciled
// offline record plus its OFFLINE validation event, atomically. Implements
// offline.RecordStore.
func (s *Service) CommitOfflineValidation(ctx context.Context, deviceID uuid.UUID, used models.UsedOfflineToken) error {
	return s.storage.InTx(ctx, func(st repository.Storage) error {
		if err := st.OfflineRecord().AppendReconciledOffline(ctx, deviceID, used); err != nil {
			return err
		}

		_, err := st.Event().AppendEvent(ctx, models.ValidationEvent{
			ID:        uuid.New(),
			PassID:    used.PassID,
			DeviceID:  deviceID,
			Method:    models.ValidationMethodOffline,
			Result:    models.ValidationResultSuccess,
			CreatedAt: used.UsedAt,
		})
		if err != nil {
			return fmt.Errorf("can't append offline event. Err: %w", err)
		}
		return nil
	})
}
