package walletservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

//go:generate mockgen -source=walletservice.go -destination=mock_walletservice.go -package=walletservice
type WalletRepo interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error)
	Increment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type TransactionRepo interface {
	Create(ctx context.Context, tx *domain.WalletTransaction) error
	ExistsByReference(ctx context.Context, referenceID string, userID uuid.UUID, txType domain.TransactionType) (bool, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.WalletTransaction, error)
}

type EventPublisher interface {
	Save(ctx context.Context, e events.Event) error
	PublishNow(ctx context.Context, e events.Event) error
}

type Service struct {
	wallets      WalletRepo
	transactions TransactionRepo
	publisher    EventPublisher
	txManager    pg.TXManager
	now          func() time.Time
}

func New(wallets WalletRepo, transactions TransactionRepo, publisher EventPublisher, txManager pg.TXManager) *Service {
	return &Service{
		wallets:      wallets,
		transactions: transactions,
		publisher:    publisher,
		txManager:    txManager,
		now:          time.Now,
	}
}

// RefundInput describes one compensating money move. CounterpartyID, when
// set, is the party that received the original payment and is debited by
// the same amount.
type RefundInput struct {
	ReferenceID    uuid.UUID
	UserID         uuid.UUID
	CounterpartyID uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	Description    string
}

type PayInput struct {
	UserID         uuid.UUID
	BookingID      uuid.UUID
	Amount         decimal.Decimal
	Kind           string
	IdempotencyKey string
}

func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) {
	wallet, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get wallet", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (s *Service) GetTransactions(ctx context.Context, userID uuid.UUID) ([]domain.WalletTransaction, error) {
	transactions, err := s.transactions.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch wallet transactions", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return transactions, nil
}

// ProcessRefund credits the user and debits the counterparty in one
// transaction. Redelivery of the same refund is a no-op.
func (s *Service) ProcessRefund(ctx context.Context, in RefundInput) error {
	if !in.Amount.IsPositive() {
		zap.L().Info("nothing to refund", zap.Stringer("reference", in.ReferenceID), zap.Stringer("amount", in.Amount))
		return nil
	}
	ref := in.ReferenceID.String()
	at := s.now().UTC()

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		done, err := s.transactions.ExistsByReference(ctx, ref, in.UserID, domain.TransactionTypeRefund)
		if err != nil {
			return err
		}
		if done {
			zap.L().Info("refund already processed", zap.String("reference", ref), zap.Stringer("user", in.UserID))
			return nil
		}

		credit := &domain.WalletTransaction{
			ID:              uuid.New(),
			UserID:          in.UserID,
			Amount:          in.Amount,
			TransactionType: domain.TransactionTypeRefund,
			ReferenceID:     &ref,
			Description:     refundDescription(in),
			CreatedAt:       at,
		}
		if err := s.apply(ctx, credit); err != nil {
			return err
		}

		if in.CounterpartyID != uuid.Nil {
			debit := &domain.WalletTransaction{
				ID:              uuid.New(),
				UserID:          in.CounterpartyID,
				Amount:          in.Amount.Neg(),
				TransactionType: domain.TransactionTypeRefundReversal,
				ReferenceID:     &ref,
				Description:     fmt.Sprintf("Refund to customer for booking %s", in.ReferenceID),
				CreatedAt:       at,
			}
			if err := s.apply(ctx, debit); err != nil {
				return err
			}
		}

		return s.publisher.Save(ctx, events.RefundProcessed{
			TransactionID:  credit.ID,
			ReferenceID:    in.ReferenceID,
			UserID:         in.UserID,
			CounterpartyID: in.CounterpartyID,
			Amount:         in.Amount,
			ProcessedAt:    at,
		})
	})
	if errors.Is(err, domain.ErrConflict) {
		zap.L().Info("refund recorded concurrently", zap.String("reference", ref))
		return nil
	}
	if err != nil {
		zap.L().Error("failed to process refund", zap.String("reference", ref), zap.Error(err))
		return err
	}
	return nil
}

// HandleBookingCancelled refunds a cancelled court booking. Court owners
// are paid outside the wallet, so only the user is credited.
func (s *Service) HandleBookingCancelled(ctx context.Context, _ string, e events.Event) error {
	cancelled, ok := e.(events.BookingCancelled)
	if !ok {
		return domain.InvalidOperation("unexpected event %s", e.EventType())
	}
	return s.ProcessRefund(ctx, RefundInput{
		ReferenceID: cancelled.BookingID,
		UserID:      cancelled.UserID,
		Amount:      cancelled.RefundAmount,
		Reason:      cancelled.Reason,
	})
}

// HandleCoachBookingCancelled refunds a coaching session and takes the
// amount back from the coach.
func (s *Service) HandleCoachBookingCancelled(ctx context.Context, _ string, e events.Event) error {
	cancelled, ok := e.(events.CoachBookingCancelled)
	if !ok {
		return domain.InvalidOperation("unexpected event %s", e.EventType())
	}
	return s.ProcessRefund(ctx, RefundInput{
		ReferenceID:    cancelled.BookingID,
		UserID:         cancelled.UserID,
		CounterpartyID: cancelled.CoachID,
		Amount:         cancelled.RefundAmount,
		Reason:         cancelled.Reason,
	})
}

// HandleBookingPaymentRejected returns a wallet payment the booking refused.
// The refund is keyed on the payment transaction, so it happens once.
func (s *Service) HandleBookingPaymentRejected(ctx context.Context, _ string, e events.Event) error {
	rejected, ok := e.(events.BookingPaymentRejected)
	if !ok {
		return domain.InvalidOperation("unexpected event %s", e.EventType())
	}
	return s.ProcessRefund(ctx, RefundInput{
		ReferenceID: rejected.TransactionID,
		UserID:      rejected.UserID,
		Amount:      rejected.Amount,
		Reason:      rejected.Reason,
		Description: fmt.Sprintf("Payment returned for booking %s: %s", rejected.BookingID, rejected.Reason),
	})
}

// apply changes the balance and appends the matching ledger row. Both run
// on the transaction in ctx.
func (s *Service) apply(ctx context.Context, tx *domain.WalletTransaction) error {
	if _, err := s.wallets.Increment(ctx, tx.UserID, tx.Amount); err != nil {
		return err
	}
	return s.transactions.Create(ctx, tx)
}

// PayBooking pays for a booking from the wallet. On insufficient funds the
// failure is announced right away since no state changed.
func (s *Service) PayBooking(ctx context.Context, in PayInput) (*domain.WalletTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, domain.InvalidOperation("amount must be positive")
	}
	if in.Kind != events.PaymentKindDeposit && in.Kind != events.PaymentKindPayment {
		return nil, domain.InvalidOperation("unknown payment kind %q", in.Kind)
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	ref := in.BookingID.String() + "/" + key
	at := s.now().UTC()
	tx := &domain.WalletTransaction{
		ID:              uuid.New(),
		UserID:          in.UserID,
		Amount:          in.Amount.Neg(),
		TransactionType: domain.TransactionTypeBookingPayment,
		ReferenceID:     &ref,
		Description:     fmt.Sprintf("Booking %s %s", in.Kind, in.BookingID),
		CreatedAt:       at,
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := s.wallets.Debit(ctx, in.UserID, in.Amount); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx); err != nil {
			return err
		}
		return s.publisher.Save(ctx, events.PaymentSucceeded{
			TransactionID: tx.ID,
			UserID:        in.UserID,
			BookingID:     in.BookingID,
			Amount:        in.Amount,
			Kind:          in.Kind,
			OccurredAt:    at,
		})
	})
	if errors.Is(err, domain.ErrInsufficientBalance) {
		failed := events.PaymentFailed{
			UserID:     in.UserID,
			BookingID:  in.BookingID,
			Amount:     in.Amount,
			Kind:       in.Kind,
			Reason:     err.Error(),
			OccurredAt: at,
		}
		if pubErr := s.publisher.PublishNow(ctx, failed); pubErr != nil {
			zap.L().Warn("can't announce failed payment", zap.Stringer("booking", in.BookingID), zap.Error(pubErr))
		}
		return nil, err
	}
	if err != nil {
		zap.L().Error("failed to pay booking", zap.Stringer("booking", in.BookingID), zap.Error(err))
		return nil, err
	}
	return tx, nil
}

// TopUp credits the wallet. A repeated reference returns the wallet as it is.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.UserWallet, error) {
	if !amount.IsPositive() {
		return nil, domain.InvalidOperation("amount must be positive")
	}

	var ref *string
	if reference != "" {
		ref = &reference
	}
	tx := &domain.WalletTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: domain.TransactionTypeTopUp,
		ReferenceID:     ref,
		Description:     "Wallet top up",
		CreatedAt:       s.now().UTC(),
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if ref != nil {
			done, err := s.transactions.ExistsByReference(ctx, reference, userID, domain.TransactionTypeTopUp)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		return s.apply(ctx, tx)
	})
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		zap.L().Error("failed to top up wallet", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return s.GetWallet(ctx, userID)
}

func refundDescription(in RefundInput) string {
	if in.Description != "" {
		return in.Description
	}
	if in.Reason == "" {
		return fmt.Sprintf("Refund for booking %s", in.ReferenceID)
	}
	return fmt.Sprintf("Refund for booking %s: %s", in.ReferenceID, in.Reason)
}
