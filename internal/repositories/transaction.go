package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManagerInterface - атомарная область операции. Реализация в памяти передает tx == nil.
type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) TxManagerInterface {
	return &TxManager{pool: pool}
}

// RunInTransaction выполняет fn в одной транзакции read committed. Блокировки строк
// (FOR UPDATE) берет сам fn. Ошибка или паника откатывают транзакцию.
// Конфликты блокировок отдаются как StorageError: операцию можно повторить.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageError("tx.begin", fmt.Errorf("не удалось начать транзакцию: %w", err))
	}
	// после Commit это no-op
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		if isLockConflict(err) {
			return storageError("tx.conflict", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("tx.commit", fmt.Errorf("ошибка при коммите транзакции: %w", err))
	}
	return nil
}

func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}
