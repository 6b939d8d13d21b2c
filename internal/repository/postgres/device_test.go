package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/testutil"
)

func Test_DeviceRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create device ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := DeviceRepo{DB: tx}

			got, err := repo.CreateDevice(t.Context(), "validator-001", "hashed-secret")

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, got.ID)
			require.Equal(t, "validator-001", got.Name)
			require.Equal(t, "hashed-secret", got.HashedSecret)
		})
	})

	t.Run("duplicate name", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := DeviceRepo{DB: tx}
			_, err := repo.CreateDevice(t.Context(), "validator-001", "hashed-secret")
			require.NoError(t, err)

			_, err = repo.CreateDevice(t.Context(), "validator-001", "ya-hashed-secret")

			require.ErrorIs(t, err, apperrors.ErrDeviceAlreadyExists)
		})
	})

	t.Run("get by id and name", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := DeviceRepo{DB: tx}
			created, err := repo.CreateDevice(t.Context(), "validator-001", "hashed-secret")
			require.NoError(t, err)

			byID, err := repo.GetDeviceByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created.ID, byID.ID)

			byName, err := repo.GetDeviceByName(t.Context(), "validator-001")
			require.NoError(t, err)
			require.Equal(t, created.ID, byName.ID)
		})
	})

	t.Run("missing device", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := DeviceRepo{DB: tx}

			_, err := repo.GetDeviceByID(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrDeviceNotFound)

			_, err = repo.GetDeviceByName(t.Context(), "nope")
			require.ErrorIs(t, err, apperrors.ErrDeviceNotFound)
		})
	})
}
