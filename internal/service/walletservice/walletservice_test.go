package walletservice

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
	transactionrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/transaction-repo"
	walletrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/wallet-repo"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type mocks struct {
	wallets      *MockWalletRepo
	transactions *MockTransactionRepo
	publisher    *MockEventPublisher
	txManager    *pg.MockTXManager
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		wallets:      NewMockWalletRepo(ctrl),
		transactions: NewMockTransactionRepo(ctrl),
		publisher:    NewMockEventPublisher(ctrl),
		txManager:    pg.NewMockTXManager(ctrl),
	}
	s := New(m.wallets, m.transactions, m.publisher, m.txManager)
	s.now = func() time.Time { return now }
	return s, m
}

func (m *mocks) passThrough() {
	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

type decimalMatcher struct{ want decimal.Decimal }

func (d decimalMatcher) Matches(x any) bool {
	v, ok := x.(decimal.Decimal)
	return ok && v.Equal(d.want)
}

func (d decimalMatcher) String() string { return "is decimal " + d.want.String() }

func eqDecimal(v int64) gomock.Matcher { return decimalMatcher{decimal.NewFromInt(v)} }

func TestService_ProcessRefund(t *testing.T) {
	bookingID, userID, coachID := uuid.New(), uuid.New(), uuid.New()
	ref := bookingID.String()

	tests := []struct {
		name      string
		input     RefundInput
		mockSetup func(m *mocks)
		expectErr bool
	}{
		{
			name:  "User credited and coach debited",
			input: RefundInput{ReferenceID: bookingID, UserID: userID, CounterpartyID: coachID, Amount: decimal.NewFromInt(100)},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
				gomock.InOrder(
					m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(100), nil),
					m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *domain.WalletTransaction) error {
						assert.Equal(t, userID, tx.UserID)
						assert.Equal(t, domain.TransactionTypeRefund, tx.TransactionType)
						assert.Equal(t, ref, *tx.ReferenceID)
						return nil
					}),
					m.wallets.EXPECT().Increment(gomock.Any(), coachID, eqDecimal(-100)).Return(decimal.NewFromInt(-100), nil),
					m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *domain.WalletTransaction) error {
						assert.Equal(t, coachID, tx.UserID)
						assert.Equal(t, domain.TransactionTypeRefundReversal, tx.TransactionType)
						assert.True(t, decimal.NewFromInt(-100).Equal(tx.Amount))
						assert.Equal(t, ref, *tx.ReferenceID)
						return nil
					}),
					m.publisher.EXPECT().Save(gomock.Any(), gomock.AssignableToTypeOf(events.RefundProcessed{})).Return(nil),
				)
			},
		},
		{
			name:  "Court booking refund has no counterparty",
			input: RefundInput{ReferenceID: bookingID, UserID: userID, Amount: decimal.NewFromInt(100)},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(100), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
				m.publisher.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:  "Redelivered refund is skipped",
			input: RefundInput{ReferenceID: bookingID, UserID: userID, CounterpartyID: coachID, Amount: decimal.NewFromInt(100)},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(true, nil)
			},
		},
		{
			name:      "Zero refund does nothing",
			input:     RefundInput{ReferenceID: bookingID, UserID: userID, Amount: decimal.Zero},
			mockSetup: func(m *mocks) {},
		},
		{
			name:  "Concurrent duplicate hits the unique index",
			input: RefundInput{ReferenceID: bookingID, UserID: userID, Amount: decimal.NewFromInt(100)},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(100), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.Conflict("already recorded"))
			},
		},
		{
			name:  "Coach debit fails",
			input: RefundInput{ReferenceID: bookingID, UserID: userID, CounterpartyID: coachID, Amount: decimal.NewFromInt(100)},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(100), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
				m.wallets.EXPECT().Increment(gomock.Any(), coachID, eqDecimal(-100)).Return(decimal.Zero, errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := NewMock(t)
			tt.mockSetup(m)

			err := s.ProcessRefund(context.Background(), tt.input)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Runs the real repositories and transaction manager against pgxmock and
// fails the coach debit after the user credit went through.
func TestService_ProcessRefund_FailureLeavesNoPartialLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	publisher := NewMockEventPublisher(ctrl)
	conn := pg.New(mock)
	s := New(walletrepo.New(conn), transactionrepo.New(conn), publisher, pg.NewTXManager(mock))

	bookingID, userID, coachID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(bookingID.String(), userID, domain.TransactionTypeRefund).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_wallets`)).
		WithArgs(userID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(100)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), domain.TransactionTypeRefund, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_wallets`)).
		WithArgs(coachID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = s.ProcessRefund(context.Background(), RefundInput{
		ReferenceID:    bookingID,
		UserID:         userID,
		CounterpartyID: coachID,
		Amount:         decimal.NewFromInt(100),
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_PayBooking(t *testing.T) {
	userID, bookingID := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		input     PayInput
		mockSetup func(m *mocks)
		expectErr error
	}{
		{
			name:  "Paid from wallet",
			input: PayInput{UserID: userID, BookingID: bookingID, Amount: decimal.NewFromInt(100), Kind: events.PaymentKindDeposit, IdempotencyKey: "k1"},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.wallets.EXPECT().Debit(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(50), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *domain.WalletTransaction) error {
					assert.Equal(t, bookingID.String()+"/k1", *tx.ReferenceID)
					assert.True(t, decimal.NewFromInt(-100).Equal(tx.Amount))
					return nil
				})
				m.publisher.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
					paid, ok := e.(events.PaymentSucceeded)
					assert.True(t, ok)
					assert.Equal(t, events.PaymentKindDeposit, paid.Kind)
					assert.Equal(t, bookingID, paid.BookingID)
					return nil
				})
			},
		},
		{
			name:  "Insufficient balance fires payment failed",
			input: PayInput{UserID: userID, BookingID: bookingID, Amount: decimal.NewFromInt(500), Kind: events.PaymentKindPayment},
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.wallets.EXPECT().Debit(gomock.Any(), userID, eqDecimal(500)).Return(decimal.Zero, domain.InsufficientBalance("not enough"))
				m.publisher.EXPECT().PublishNow(gomock.Any(), gomock.AssignableToTypeOf(events.PaymentFailed{})).Return(errors.New("broker down"))
			},
			expectErr: domain.ErrInsufficientBalance,
		},
		{
			name:      "Non-positive amount",
			input:     PayInput{UserID: userID, BookingID: bookingID, Amount: decimal.Zero, Kind: events.PaymentKindDeposit},
			mockSetup: func(m *mocks) {},
			expectErr: domain.ErrInvalidOperation,
		},
		{
			name:      "Unknown kind",
			input:     PayInput{UserID: userID, BookingID: bookingID, Amount: decimal.NewFromInt(1), Kind: "voucher"},
			mockSetup: func(m *mocks) {},
			expectErr: domain.ErrInvalidOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := NewMock(t)
			tt.mockSetup(m)

			tx, err := s.PayBooking(context.Background(), tt.input)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, tx)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.TransactionTypeBookingPayment, tx.TransactionType)
		})
	}
}

func TestService_TopUp(t *testing.T) {
	userID := uuid.New()
	wallet := &domain.UserWallet{UserID: userID, Balance: decimal.NewFromInt(300)}

	tests := []struct {
		name      string
		amount    decimal.Decimal
		reference string
		mockSetup func(m *mocks)
		expectErr bool
	}{
		{
			name:      "Credited",
			amount:    decimal.NewFromInt(300),
			reference: "topup-1",
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), "topup-1", userID, domain.TransactionTypeTopUp).Return(false, nil)
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(300)).Return(decimal.NewFromInt(300), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
				m.wallets.EXPECT().GetOrCreate(gomock.Any(), userID).Return(wallet, nil)
			},
		},
		{
			name:      "Repeated reference",
			amount:    decimal.NewFromInt(300),
			reference: "topup-1",
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.transactions.EXPECT().ExistsByReference(gomock.Any(), "topup-1", userID, domain.TransactionTypeTopUp).Return(true, nil)
				m.wallets.EXPECT().GetOrCreate(gomock.Any(), userID).Return(wallet, nil)
			},
		},
		{
			name:      "Without reference",
			amount:    decimal.NewFromInt(10),
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(10)).Return(decimal.NewFromInt(10), nil)
				m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
				m.wallets.EXPECT().GetOrCreate(gomock.Any(), userID).Return(wallet, nil)
			},
		},
		{
			name:      "Negative amount",
			amount:    decimal.NewFromInt(-5),
			mockSetup: func(m *mocks) {},
			expectErr: true,
		},
		{
			name:   "Database error",
			amount: decimal.NewFromInt(10),
			mockSetup: func(m *mocks) {
				m.passThrough()
				m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(10)).Return(decimal.Zero, errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := NewMock(t)
			tt.mockSetup(m)

			got, err := s.TopUp(context.Background(), userID, tt.amount, tt.reference)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, wallet, got)
		})
	}
}

func TestService_GetWalletAndTransactions(t *testing.T) {
	s, m := NewMock(t)
	userID := uuid.New()

	m.wallets.EXPECT().GetOrCreate(gomock.Any(), userID).Return(nil, errors.New("database error"))
	_, err := s.GetWallet(context.Background(), userID)
	assert.Error(t, err)

	m.transactions.EXPECT().FindByUserID(gomock.Any(), userID).Return([]domain.WalletTransaction{{UserID: userID}}, nil)
	txs, err := s.GetTransactions(context.Background(), userID)
	assert.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestService_HandleCancellationEvents(t *testing.T) {
	bookingID, userID, coachID := uuid.New(), uuid.New(), uuid.New()
	ref := bookingID.String()

	t.Run("Court booking refunds the user only", func(t *testing.T) {
		s, m := NewMock(t)
		m.passThrough()
		m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
		m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(80)).Return(decimal.NewFromInt(80), nil)
		m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.publisher.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
			assert.Equal(t, uuid.Nil, e.(events.RefundProcessed).CounterpartyID)
			return nil
		})

		err := s.HandleBookingCancelled(context.Background(), "m-1", events.BookingCancelled{
			BookingID:    bookingID,
			UserID:       userID,
			RefundAmount: decimal.NewFromInt(80),
		})
		assert.NoError(t, err)
	})

	t.Run("Coaching session takes the refund back from the coach", func(t *testing.T) {
		s, m := NewMock(t)
		m.passThrough()
		m.transactions.EXPECT().ExistsByReference(gomock.Any(), ref, userID, domain.TransactionTypeRefund).Return(false, nil)
		m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(30)).Return(decimal.NewFromInt(30), nil)
		m.wallets.EXPECT().Increment(gomock.Any(), coachID, eqDecimal(-30)).Return(decimal.NewFromInt(70), nil)
		m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)
		m.publisher.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		err := s.HandleCoachBookingCancelled(context.Background(), "m-2", events.CoachBookingCancelled{
			BookingID:    bookingID,
			UserID:       userID,
			CoachID:      coachID,
			RefundAmount: decimal.NewFromInt(30),
		})
		assert.NoError(t, err)
	})

	t.Run("Wrong event shape", func(t *testing.T) {
		s, _ := NewMock(t)
		err := s.HandleBookingCancelled(context.Background(), "m-3", events.PaymentFailed{})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
		err = s.HandleCoachBookingCancelled(context.Background(), "m-3", events.PaymentFailed{})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	})
}

func TestService_HandleBookingPaymentRejected(t *testing.T) {
	bookingID, userID, txID := uuid.New(), uuid.New(), uuid.New()
	rejected := events.BookingPaymentRejected{
		TransactionID: txID,
		BookingID:     bookingID,
		UserID:        userID,
		Amount:        decimal.NewFromInt(100),
		Kind:          events.PaymentKindPayment,
		Reason:        "booking in status CANCELLED accepts no payments",
	}

	t.Run("Money goes back to the payer", func(t *testing.T) {
		s, m := NewMock(t)
		m.passThrough()
		m.transactions.EXPECT().ExistsByReference(gomock.Any(), txID.String(), userID, domain.TransactionTypeRefund).Return(false, nil)
		m.wallets.EXPECT().Increment(gomock.Any(), userID, eqDecimal(100)).Return(decimal.NewFromInt(100), nil)
		m.transactions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *domain.WalletTransaction) error {
			assert.Equal(t, domain.TransactionTypeRefund, tx.TransactionType)
			require.NotNil(t, tx.ReferenceID)
			assert.Equal(t, txID.String(), *tx.ReferenceID)
			assert.Contains(t, tx.Description, bookingID.String())
			return nil
		})
		m.publisher.EXPECT().Save(gomock.Any(), gomock.AssignableToTypeOf(events.RefundProcessed{})).Return(nil)

		assert.NoError(t, s.HandleBookingPaymentRejected(context.Background(), "m-1", rejected))
	})

	t.Run("Redelivery refunds once", func(t *testing.T) {
		s, m := NewMock(t)
		m.passThrough()
		m.transactions.EXPECT().ExistsByReference(gomock.Any(), txID.String(), userID, domain.TransactionTypeRefund).Return(true, nil)

		assert.NoError(t, s.HandleBookingPaymentRejected(context.Background(), "m-1", rejected))
	})

	t.Run("Wrong event shape", func(t *testing.T) {
		s, _ := NewMock(t)
		err := s.HandleBookingPaymentRejected(context.Background(), "m-2", events.PaymentFailed{})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	})
}
