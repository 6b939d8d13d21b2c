package deviceauth

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/repository/postgres"
	"github.com/nkiryanov/farepass/internal/testutil"
)

func TestDeviceAuth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper to create the service bound to a rolled back transaction
	withService := func(t *testing.T, fn func(s *Service)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			s, err := NewService(Config{SecretKey: "test-secret"}, storage.Device(), storage.DeviceToken())
			require.NoError(t, err, "service should be created without errors")

			fn(s)
		})
	}

	t.Run("requires secret key and repos", func(t *testing.T) {
		_, err := NewService(Config{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("register and login", func(t *testing.T) {
		withService(t, func(s *Service) {
			device, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			require.Equal(t, "validator-001", device.Name)
			require.NotEqual(t, "device-secret", device.HashedSecret, "secret must never be stored raw")

			pair, err := s.Login(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			require.NotEmpty(t, pair.Access.Value)
			require.NotEmpty(t, pair.Refresh.Value)
			require.True(t, pair.Access.ExpiresAt.Before(pair.Refresh.ExpiresAt), "refresh should outlive access")
		})
	})

	t.Run("register taken name", func(t *testing.T) {
		withService(t, func(s *Service) {
			_, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			_, err = s.Register(t.Context(), "validator-001", "ya-secret")
			require.ErrorIs(t, err, apperrors.ErrDeviceAlreadyExists)
		})
	})

	t.Run("login failures", func(t *testing.T) {
		withService(t, func(s *Service) {
			_, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			_, err = s.Login(t.Context(), "validator-001", "wrong-secret")
			require.ErrorIs(t, err, apperrors.ErrDeviceNotFound, "bad secret must look like unknown device")

			_, err = s.Login(t.Context(), "nope", "device-secret")
			require.ErrorIs(t, err, apperrors.ErrDeviceNotFound)
		})
	})

	t.Run("access token round trip", func(t *testing.T) {
		withService(t, func(s *Service) {
			device, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			deviceID, err := s.ParseAccess(pair.Access.Value)

			require.NoError(t, err)
			require.Equal(t, device.ID, deviceID)
		})
	})

	t.Run("access token signed with another key", func(t *testing.T) {
		withService(t, func(s *Service) {
			_, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			other, err := NewService(Config{SecretKey: "ya-secret-key"}, s.deviceRepo, s.tokenRepo)
			require.NoError(t, err)

			_, err = other.ParseAccess(pair.Access.Value)
			require.Error(t, err)
		})
	})

	t.Run("refresh rotates the pair", func(t *testing.T) {
		withService(t, func(s *Service) {
			_, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			fresh, err := s.Refresh(t.Context(), pair.Refresh.Value)
			require.NoError(t, err)
			require.NotEqual(t, pair.Refresh.Value, fresh.Refresh.Value)

			// Single use: the spent token must be refused on replay
			_, err = s.Refresh(t.Context(), pair.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
		})
	})

	t.Run("refresh unknown token", func(t *testing.T) {
		withService(t, func(s *Service) {
			_, err := s.Refresh(t.Context(), "nope")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("refresh expired token", func(t *testing.T) {
		withService(t, func(s *Service) {
			device, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			expired := models.DeviceRefreshToken{
				ID:        uuid.New(),
				DeviceID:  device.ID,
				Token:     "expired-token",
				CreatedAt: time.Now().Add(-48 * time.Hour),
				ExpiresAt: time.Now().Add(-24 * time.Hour),
			}
			require.NoError(t, s.tokenRepo.Save(t.Context(), expired))

			_, err = s.Refresh(t.Context(), expired.Token)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
		})
	})

	t.Run("auth from request", func(t *testing.T) {
		withService(t, func(s *Service) {
			device, err := s.Register(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "validator-001", "device-secret")
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+pair.Access.Value)

			got, err := s.Auth(t.Context(), req)
			require.NoError(t, err)
			require.Equal(t, device.ID, got.ID)
		})
	})

	t.Run("auth without bearer token", func(t *testing.T) {
		withService(t, func(s *Service) {
			req, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)

			_, err = s.Auth(t.Context(), req)
			require.Error(t, err)
		})
	})
}
