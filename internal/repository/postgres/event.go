package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/farepass/internal/models"
)

type EventRepo struct {
	DB DBTX
}

const appendEvent = `-- name: AppendEvent
INSERT INTO validation_events (id, pass_id, device_id, lat, lng, method, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, pass_id, device_id, lat, lng, method, result, created_at
`

func (r *EventRepo) AppendEvent(ctx context.Context, event models.ValidationEvent) (models.ValidationEvent, error) {
	rows, _ := r.DB.Query(ctx, appendEvent,
		event.ID, event.PassID, event.DeviceID, event.Lat, event.Lng, event.Method, event.Result, event.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToEvent)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func rowToEvent(row pgx.CollectableRow) (models.ValidationEvent, error) {
	var e models.ValidationEvent
	err := row.Scan(&e.ID, &e.PassID, &e.DeviceID, &e.Lat, &e.Lng, &e.Method, &e.Result, &e.CreatedAt)
	return e, err
}
