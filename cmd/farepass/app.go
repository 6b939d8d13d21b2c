package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nkiryanov/farepass/internal/colortoken"
	"github.com/nkiryanov/farepass/internal/db"
	"github.com/nkiryanov/farepass/internal/handlers"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/offline"
	"github.com/nkiryanov/farepass/internal/qrtoken"
	"github.com/nkiryanov/farepass/internal/repository/postgres"
	"github.com/nkiryanov/farepass/internal/service/deviceauth"
	"github.com/nkiryanov/farepass/internal/service/pass"
	"github.com/nkiryanov/farepass/internal/service/validation"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize token machinery
	codec, err := qrtoken.NewCodec(qrtoken.Config{
		SigningKey: c.PayloadSigningKey,
		PayloadTTL: time.Duration(c.PayloadValiditySeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating payload codec. Err: %w", err)
	}

	colors, err := colortoken.NewGenerator(colortoken.Config{
		DerivationKey: c.ColorDerivationKey,
		Window:        time.Duration(c.ColorWindowSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating color token generator. Err: %w", err)
	}

	issuer := qrtoken.NewIssuer(codec)

	offlinePool, err := offline.NewPool(offline.Config{
		PoolKey:   c.OfflinePoolKey,
		BatchSize: c.OfflineBatchSize,
		TokenTTL:  time.Duration(c.OfflineTokenValiditySeconds) * time.Second,
	}, offline.NewFileStore(c.OfflineStatePath))
	if err != nil {
		return nil, fmt.Errorf("error while creating offline token pool. Err: %w", err)
	}

	// Initialize services
	deviceService, err := deviceauth.NewService(
		deviceauth.Config{SecretKey: c.SecretKey},
		storage.Device(),
		storage.DeviceToken(),
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating device auth service. Err: %w", err)
	}
	passService := pass.NewService(storage, colors, issuer)
	validationService := validation.NewService(codec, colors, offlinePool, storage, log)

	mux := handlers.NewRouter(
		deviceService,
		passService,
		validationService,
		offlinePool,
		[]byte(c.OfflinePoolKey),
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
