package transactionrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

const uniqueViolation = "23505"

// Repository is the append-only wallet ledger.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Create appends a ledger row. A second row with the same reference, user
// and type is reported as domain.ErrConflict.
func (r *Repository) Create(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, user_id, amount, transaction_type, reference_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, tx.ID, tx.UserID, tx.Amount, tx.TransactionType, tx.ReferenceID, tx.Description, tx.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Conflict("%s transaction for reference %s already recorded", tx.TransactionType, deref(tx.ReferenceID))
		}
		zap.L().Error("can't save wallet transaction", zap.Stringer("user", tx.UserID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) ExistsByReference(ctx context.Context, referenceID string, userID uuid.UUID, txType domain.TransactionType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wallet_transactions
			WHERE reference_id = $1 AND user_id = $2 AND transaction_type = $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, referenceID, userID, txType).Scan(&exists); err != nil {
		zap.L().Error("can't check wallet transaction reference", zap.String("reference", referenceID), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.WalletTransaction, error) {
	query := `
		SELECT id, user_id, amount, transaction_type, reference_id, description, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("failed to fetch wallet transactions", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.TransactionType, &tx.ReferenceID, &tx.Description, &tx.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan wallet transaction row", zap.Error(err))
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("failed to iterate wallet transaction rows", zap.Error(err))
		return nil, err
	}
	return transactions, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
