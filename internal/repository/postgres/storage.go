package postgres

import (
	"context"
	"fmt"

	"github.com/nkiryanov/farepass/internal/repository"
)

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Pass() repository.PassRepo {
	return &PassRepo{DB: s.db}
}

func (s *Storage) Event() repository.EventRepo {
	return &EventRepo{DB: s.db}
}

func (s *Storage) OfflineRecord() repository.OfflineRecordRepo {
	return &OfflineRecordRepo{DB: s.db}
}

func (s *Storage) Device() repository.DeviceRepo {
	return &DeviceRepo{DB: s.db}
}

func (s *Storage) DeviceToken() repository.DeviceTokenRepo {
	return &DeviceTokenRepo{DB: s.db}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{DB: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	err = fn(NewStorage(tx))

	return err
}
