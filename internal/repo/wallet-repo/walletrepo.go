package walletrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

// Repository mutates balances with single statements only. A balance is
// never read, changed in Go and written back.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// GetOrCreate returns the wallet, creating an empty one on first use.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) {
	query := `
		INSERT INTO user_wallets (user_id, balance, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, balance, updated_at
	`
	var w domain.UserWallet
	err := r.db.QueryRow(ctx, query, userID, time.Now().UTC()).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		zap.L().Error("can't get user wallet", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return &w, nil
}

// Increment adds amount (which may be negative) to the balance, creating
// the wallet when missing, and returns the new balance. No lower bound is
// enforced.
func (r *Repository) Increment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		INSERT INTO user_wallets (user_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING balance
	`
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, query, userID, amount, time.Now().UTC()).Scan(&balance)
	if err != nil {
		zap.L().Error("can't increment user wallet", zap.Stringer("user", userID), zap.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}

// Debit takes amount off the balance only if the balance covers it.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE user_wallets
		SET balance = balance - $2, updated_at = $3
		WHERE user_id = $1 AND balance - $2 >= 0
		RETURNING balance
	`
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, query, userID, amount, time.Now().UTC()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.InsufficientBalance("wallet balance does not cover %s", amount)
	}
	if err != nil {
		zap.L().Error("can't debit user wallet", zap.Stringer("user", userID), zap.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}
