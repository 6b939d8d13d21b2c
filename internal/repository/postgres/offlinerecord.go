package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

type OfflineRecordRepo struct {
	DB DBTX
}

// jti is the primary key, so a replayed reconciliation request can't
// double-count a record
const appendOfflineRecord = `-- name: AppendReconciledOffline
INSERT INTO offline_validations (jti, pass_id, device_id, used_at, reconciled_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (jti) DO NOTHING
`

func (r *OfflineRecordRepo) AppendReconciledOffline(ctx context.Context, deviceID uuid.UUID, used models.UsedOfflineToken) error {
	tag, err := r.DB.Exec(ctx, appendOfflineRecord, used.JTI, used.PassID, deviceID, used.UsedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrOfflineRecordExists
	}

	return nil
}
