package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/handlers/middleware"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/service/validation"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	devices deviceService,
	passes passService,
	validator validationService,
	pool offlinePool,
	offlinePoolKey []byte,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(devices)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /device/register", handleDeviceRegister(devices, logger))
	api.Handle("POST /device/login", handleDeviceLogin(devices, logger))
	api.Handle("POST /device/refresh", handleDeviceRefresh(devices, logger))

	api.Handle("POST /passes", handlePurchasePass(passes, logger))
	api.Handle("GET /passes/{id}", handleGetPass(passes, logger))
	api.Handle("POST /passes/{id}/token", handleIssuePassToken(passes, logger))

	api.Handle("POST /validate", withAuth(handleValidate(validator, logger)))
	api.Handle("POST /offline/sync", withAuth(handleOfflineSync(passes, pool, logger)))
	api.Handle("POST /reconcile", withAuth(handleReconcile(validator, offlinePoolKey, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type deviceService interface {
	// Register device with name and secret
	// Has to return apperrors.ErrDeviceAlreadyExists if name is taken
	Register(ctx context.Context, name string, secret string) (models.Device, error)

	// Login device with name and secret
	// Has to return apperrors.ErrDeviceNotFound on bad credentials
	Login(ctx context.Context, name string, secret string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Get request and return device if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.Device, error)
}

type passService interface {
	Purchase(ctx context.Context, passType string, amount decimal.Decimal, currency string) (models.Pass, error)
	GetPass(ctx context.Context, passID uuid.UUID) (models.Pass, error)
	IssueToken(ctx context.Context, passID uuid.UUID) (models.IssuedQRToken, error)
	SeedSnapshot(ctx context.Context, passIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type offlinePool interface {
	Sync(now time.Time, seeds map[uuid.UUID]string) ([]models.OfflineToken, error)
}

type validationService interface {
	Validate(ctx context.Context, req validation.Request) validation.Outcome
	CommitOfflineValidation(ctx context.Context, deviceID uuid.UUID, used models.UsedOfflineToken) error
}

func isDuplicateOfflineRecord(err error) bool {
	return errors.Is(err, apperrors.ErrOfflineRecordExists)
}
