// Package events holds the wire shapes exchanged between services. Every
// event is a flat record; its type tag doubles as the AMQP routing key.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeBookingCreated         = "booking.created"
	TypeBookingCancelled       = "booking.cancelled"
	TypeBookingDetailCancelled = "booking.detail_cancelled"
	TypeBookingDepositMade     = "booking.deposit_made"
	TypeBookingPaymentMade     = "booking.payment_made"
	TypeBookingPaymentRejected = "booking.payment_rejected"
	TypeCoachBookingCancelled  = "coaching.booking_cancelled"
	TypePaymentSucceeded       = "payment.succeeded"
	TypePaymentFailed          = "payment.failed"
	TypeRefundProcessed        = "payment.refund_processed"
)

// PaymentKind tells the booking service which aggregate operation a
// successful payment maps to.
const (
	PaymentKindDeposit = "deposit"
	PaymentKindPayment = "payment"
)

type Event interface {
	EventType() string
}

type BookingCreated struct {
	BookingID      uuid.UUID       `json:"booking_id"`
	UserID         uuid.UUID       `json:"user_id"`
	BookingDate    time.Time       `json:"booking_date"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (BookingCreated) EventType() string { return TypeBookingCreated }

type BookingCancelled struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	UserID       uuid.UUID       `json:"user_id"`
	CancelledBy  uuid.UUID       `json:"cancelled_by"`
	Reason       string          `json:"reason"`
	CancelledAt  time.Time       `json:"cancelled_at"`
	BookingDate  time.Time       `json:"booking_date"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

func (BookingCancelled) EventType() string { return TypeBookingCancelled }

type BookingDetailCancelled struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	DetailID    uuid.UUID       `json:"detail_id"`
	UserID      uuid.UUID       `json:"user_id"`
	CourtID     uuid.UUID       `json:"court_id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	BookingDate time.Time       `json:"booking_date"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Reason      string          `json:"reason"`
	CancelledAt time.Time       `json:"cancelled_at"`
}

func (BookingDetailCancelled) EventType() string { return TypeBookingDetailCancelled }

type BookingDepositMade struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	UserID           uuid.UUID       `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

func (BookingDepositMade) EventType() string { return TypeBookingDepositMade }

type BookingPaymentMade struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	UserID           uuid.UUID       `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

func (BookingPaymentMade) EventType() string { return TypeBookingPaymentMade }

// BookingPaymentRejected reports a wallet payment the booking could not
// take. The payment service returns the money to the payer.
type BookingPaymentRejected struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	Reason        string          `json:"reason"`
	RejectedAt    time.Time       `json:"rejected_at"`
}

func (BookingPaymentRejected) EventType() string { return TypeBookingPaymentRejected }

// CoachBookingCancelled is published by the coaching service. The coach was
// paid when the session was booked, so a refund moves money back from them.
type CoachBookingCancelled struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	UserID       uuid.UUID       `json:"user_id"`
	CoachID      uuid.UUID       `json:"coach_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

func (CoachBookingCancelled) EventType() string { return TypeCoachBookingCancelled }

type PaymentSucceeded struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func (PaymentSucceeded) EventType() string { return TypePaymentSucceeded }

type PaymentFailed struct {
	UserID     uuid.UUID       `json:"user_id"`
	BookingID  uuid.UUID       `json:"booking_id"`
	Amount     decimal.Decimal `json:"amount"`
	Kind       string          `json:"kind"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (PaymentFailed) EventType() string { return TypePaymentFailed }

type RefundProcessed struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	ReferenceID    uuid.UUID       `json:"reference_id"`
	UserID         uuid.UUID       `json:"user_id"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Amount         decimal.Decimal `json:"amount"`
	ProcessedAt    time.Time       `json:"processed_at"`
}

func (RefundProcessed) EventType() string { return TypeRefundProcessed }
