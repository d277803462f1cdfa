package walletrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
)

type decimalArg struct{ want decimal.Decimal }

func (a decimalArg) Match(v any) bool {
	d, ok := v.(decimal.Decimal)
	return ok && d.Equal(a.want)
}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_GetOrCreate(t *testing.T) {
	repo, mock := NewMock(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_wallets (user_id, balance, updated_at) VALUES ($1, 0, $2) ON CONFLICT (user_id)`)).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "balance", "updated_at"}).AddRow(userID, decimal.NewFromInt(50), now))

	w, err := repo.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, w.UserID)
	assert.True(t, decimal.NewFromInt(50).Equal(w.Balance))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_wallets`)).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnError(errors.New("database error"))
	_, err = repo.GetOrCreate(context.Background(), userID)
	assert.Error(t, err)
}

func TestRepository_Increment(t *testing.T) {
	repo, mock := NewMock(t)
	userID := uuid.New()

	tests := []struct {
		name      string
		amount    decimal.Decimal
		mockSetup func(amount decimal.Decimal)
		expected  decimal.Decimal
		expectErr bool
	}{
		{
			name:   "Credit",
			amount: decimal.NewFromInt(100),
			mockSetup: func(amount decimal.Decimal) {
				mock.ExpectQuery(regexp.QuoteMeta(`SET balance = user_wallets.balance + EXCLUDED.balance`)).
					WithArgs(userID, decimalArg{amount}, pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(150)))
			},
			expected: decimal.NewFromInt(150),
		},
		{
			name:   "Debit below zero is allowed",
			amount: decimal.NewFromInt(-100),
			mockSetup: func(amount decimal.Decimal) {
				mock.ExpectQuery(regexp.QuoteMeta(`SET balance = user_wallets.balance + EXCLUDED.balance`)).
					WithArgs(userID, decimalArg{amount}, pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(-40)))
			},
			expected: decimal.NewFromInt(-40),
		},
		{
			name:   "Database error",
			amount: decimal.NewFromInt(10),
			mockSetup: func(amount decimal.Decimal) {
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_wallets`)).
					WithArgs(userID, decimalArg{amount}, pgxmock.AnyArg()).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup(tt.amount)
			balance, err := repo.Increment(context.Background(), userID, tt.amount)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.expected.Equal(balance))
		})
	}
}

func TestRepository_Debit(t *testing.T) {
	repo, mock := NewMock(t)
	userID := uuid.New()
	amount := decimal.NewFromInt(80)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND balance - $2 >= 0`)).
		WithArgs(userID, decimalArg{amount}, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(20)))
	balance, err := repo.Debit(context.Background(), userID, amount)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(balance))

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND balance - $2 >= 0`)).
		WithArgs(userID, decimalArg{amount}, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.Debit(context.Background(), userID, amount)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.NoError(t, mock.ExpectationsWereMet())
}
