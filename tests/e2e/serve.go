package e2e

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/colortoken"
	"github.com/nkiryanov/farepass/internal/handlers"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/offline"
	"github.com/nkiryanov/farepass/internal/qrtoken"
	"github.com/nkiryanov/farepass/internal/repository/postgres"
	"github.com/nkiryanov/farepass/internal/service/deviceauth"
	"github.com/nkiryanov/farepass/internal/service/pass"
	"github.com/nkiryanov/farepass/internal/service/validation"
	"github.com/nkiryanov/farepass/internal/testutil"
)

// Keys every e2e server is started with
const (
	SecretKey      = "e2e-secret"
	PayloadKey     = "e2e-payload-key"
	ColorKey       = "e2e-color-key"
	OfflinePoolKey = "e2e-offline-key"
)

type Services struct {
	DeviceService *deviceauth.Service
	PassService   *pass.Service
	Validator     *validation.Service
	Pool          *offline.Pool
	Colors        *colortoken.Generator
}

// Create db transaction and run server in with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		codec, err := qrtoken.NewCodec(qrtoken.Config{SigningKey: PayloadKey})
		require.NoError(t, err, "codec should be created without errors")
		colors, err := colortoken.NewGenerator(colortoken.Config{DerivationKey: ColorKey})
		require.NoError(t, err, "color generator should be created without errors")
		pool, err := offline.NewPool(offline.Config{PoolKey: OfflinePoolKey, BatchSize: 2},
			offline.NewFileStore(filepath.Join(t.TempDir(), "offline-state.json")))
		require.NoError(t, err, "offline pool should be created without errors")

		deviceService, err := deviceauth.NewService(
			deviceauth.Config{SecretKey: SecretKey},
			storage.Device(),
			storage.DeviceToken(),
		)
		require.NoError(t, err, "device auth service starting error")

		passService := pass.NewService(storage, colors, qrtoken.NewIssuer(codec))
		validator := validation.NewService(codec, colors, pool, storage, logger.NewNoOpLogger())

		router := handlers.NewRouter(
			deviceService,
			passService,
			validator,
			pool,
			[]byte(OfflinePoolKey),
			logger.NewNoOpLogger(),
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			DeviceService: deviceService,
			PassService:   passService,
			Validator:     validator,
			Pool:          pool,
			Colors:        colors,
		})
	})
}
