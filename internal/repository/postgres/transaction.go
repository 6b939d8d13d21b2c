package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/farepass/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, pass_id, amount, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, pass_id, amount, currency, status, created_at
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, tr models.Transaction) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction, tr.ID, tr.PassID, tr.Amount, tr.Currency, tr.Status, tr.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listByPass = `-- name: ListByPass
SELECT id, pass_id, amount, currency, status, created_at
FROM transactions
WHERE pass_id = $1
ORDER BY created_at DESC
`

func (r *TransactionRepo) ListByPass(ctx context.Context, passID uuid.UUID) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listByPass, passID)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)

	switch {
	case err == nil || errors.Is(err, pgx.ErrNoRows):
		return transactions, nil
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.PassID, &t.Amount, &t.Currency, &t.Status, &t.CreatedAt)
	return t, err
}
