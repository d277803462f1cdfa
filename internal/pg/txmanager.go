package pg

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type TransactionalFn func(ctx context.Context) error

//go:generate mockgen -source=txmanager.go -destination=mock_txmanager.go -package=pg
type TXManager interface {
	Begin(ctx context.Context, fn TransactionalFn) error
}

type TxManager struct {
	pool Pool
}

func NewTXManager(pool Pool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin runs fn inside one local transaction. A nested call joins the
// transaction already carried by ctx, so repositories can open their own
// unit of work and still take part in a caller's one.
func (m *TxManager) Begin(ctx context.Context, fn TransactionalFn) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				zap.L().Error("rollback failed", zap.Error(rbErr))
				err = errors.Join(err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()

	return fn(withTx(ctx, tx))
}
