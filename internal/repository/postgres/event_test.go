package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/testutil"
)

func Test_EventRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("append event ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			pass, err := (&PassRepo{DB: tx}).CreatePass(t.Context(), singlePass(1))
			require.NoError(t, err)
			device, err := (&DeviceRepo{DB: tx}).CreateDevice(t.Context(), "validator-001", "hashed-secret")
			require.NoError(t, err)
			repo := EventRepo{DB: tx}

			got, err := repo.AppendEvent(t.Context(), models.ValidationEvent{
				ID:        uuid.New(),
				PassID:    pass.ID,
				DeviceID:  device.ID,
				Lat:       12.9716,
				Lng:       77.5946,
				Method:    models.ValidationMethodOnline,
				Result:    models.ValidationResultSuccess,
				CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			})

			require.NoError(t, err)
			require.Equal(t, pass.ID, got.PassID)
			require.Equal(t, device.ID, got.DeviceID)
			require.InDelta(t, 12.9716, got.Lat, 0.000001)
			require.InDelta(t, 77.5946, got.Lng, 0.000001)
			require.Equal(t, models.ValidationMethodOnline, got.Method)
			require.Equal(t, models.ValidationResultSuccess, got.Result)
		})
	})

	t.Run("event for missing pass is refused", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			device, err := (&DeviceRepo{DB: tx}).CreateDevice(t.Context(), "validator-001", "hashed-secret")
			require.NoError(t, err)
			repo := EventRepo{DB: tx}

			_, err = repo.AppendEvent(t.Context(), models.ValidationEvent{
				ID:       uuid.New(),
				PassID:   uuid.New(),
				DeviceID: device.ID,
				Method:   models.ValidationMethodOnline,
				Result:   models.ValidationResultFailure,
			})

			require.Error(t, err, "ledger events must reference an existing pass")
		})
	})
}
