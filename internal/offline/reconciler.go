package offline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

// RecordStore is the ledger-side sink for offline-consumed authorizations.
// Submitting an already reconciled jti must return apperrors.ErrOfflineRecordExists.
type RecordStore interface {
	CommitOfflineValidation(ctx context.Context, deviceID uuid.UUID, used models.UsedOfflineToken) error
}

// Reconciler replays locally consumed offline tokens to the ledger once the
// device is back online. It is invoked by the caller on reconnect, never on a
// timer: retry policy is an operational concern outside this package.
type Reconciler struct {
	pool     *Pool
	records  RecordStore
	deviceID uuid.UUID
}

func NewReconciler(pool *Pool, records RecordStore, deviceID uuid.UUID) (*Reconciler, error) {
	if pool == nil || records == nil {
		return nil, errors.New("pool and record store must not be nil")
	}

	return &Reconciler{
		pool:     pool,
		records:  records,
		deviceID: deviceID,
	}, nil
}

// Reconcile submits every locally consumed entry and clears local state only
// when all of them are confirmed. A jti the ledger already knows counts as
// committed. On partial failure the committed count is returned together with
// ErrReconcileIncomplete and local state is preserved for a future retry.
func (r *Reconciler) Reconcile(ctx context.Context) (committed int, err error) {
	used := r.pool.Used()

	for _, u := range used {
		err := r.records.CommitOfflineValidation(ctx, r.deviceID, u)
		switch {
		case err == nil, errors.Is(err, apperrors.ErrOfflineRecordExists):
			committed++
		default:
			unconfirmed := len(used) - committed
			return committed, fmt.Errorf(
				"%w: %d of %d records unconfirmed: %w",
				apperrors.ErrReconcileIncomplete, unconfirmed, len(used), err,
			)
		}
	}

	if err := r.pool.Clear(); err != nil {
		return committed, fmt.Errorf("can't clear offline state after reconcile: %w", err)
	}

	return committed, nil
}
