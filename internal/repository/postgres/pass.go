package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
)

// Storage encoding of the trip balance: non-negative remaining trips for
// SINGLE passes, -1 for unlimited time based passes. The sentinel stays inside
// this package, the domain model carries the tagged Balance instead.
const unlimitedBalance = -1

type PassRepo struct {
	DB DBTX
}

const createPass = `-- name: CreatePass
INSERT INTO passes (id, pass_type, status, valid_from, valid_until, balance, color_seed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, pass_type, status, valid_from, valid_until, balance, color_seed, created_at
`

func (r *PassRepo) CreatePass(ctx context.Context, pass models.Pass) (models.Pass, error) {
	balance := pass.Balance.Remaining
	if pass.Balance.Unlimited() {
		balance = unlimitedBalance
	}

	rows, _ := r.DB.Query(ctx, createPass,
		pass.ID, pass.PassType, pass.Status, pass.ValidFrom, pass.ValidUntil, balance, pass.ColorSeed, pass.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToPass)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getPass = `-- name: GetPass
SELECT id, pass_type, status, valid_from, valid_until, balance, color_seed, created_at
FROM passes
WHERE id = $1
`

func (r *PassRepo) GetPass(ctx context.Context, passID uuid.UUID) (models.Pass, error) {
	rows, _ := r.DB.Query(ctx, getPass, passID)
	pass, err := pgx.CollectOneRow(rows, rowToPass)

	switch {
	case err == nil:
		return pass, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pass, apperrors.ErrPassNotFound
	default:
		return pass, fmt.Errorf("db error: %w", err)
	}
}

// Single conditional update: the decrement and the balance guard are one
// statement, so two devices validating the same pass concurrently can't both
// spend the last trip.
const decrementBalance = `-- name: DecrementBalanceIfPositive
UPDATE passes
SET balance = balance - 1
WHERE id = $1 AND balance > 0
RETURNING balance
`

func (r *PassRepo) DecrementBalanceIfPositive(ctx context.Context, passID uuid.UUID) (int, error) {
	rows, _ := r.DB.Query(ctx, decrementBalance, passID)
	balance, err := pgx.CollectOneRow(rows, pgx.RowTo[int])

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrNoBalanceRemaining
	default:
		return 0, fmt.Errorf("db error: %w", err)
	}
}

const setStatus = `-- name: SetStatus
UPDATE passes
SET status = $2
WHERE id = $1
RETURNING id
`

func (r *PassRepo) SetStatus(ctx context.Context, passID uuid.UUID, status string) error {
	rows, _ := r.DB.Query(ctx, setStatus, passID, status)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrPassNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToPass(row pgx.CollectableRow) (models.Pass, error) {
	var p models.Pass
	var balance int

	err := row.Scan(&p.ID, &p.PassType, &p.Status, &p.ValidFrom, &p.ValidUntil, &balance, &p.ColorSeed, &p.CreatedAt)
	if err != nil {
		return p, err
	}

	p.Balance = models.Balance{PassType: p.PassType}
	if balance != unlimitedBalance {
		p.Balance.Remaining = balance
	}

	return p, nil
}
