package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "PENDING"
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusDeposited      BookingStatus = "DEPOSITED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
)

type Role string

const (
	RoleUser             Role = "user"
	RoleCoach            Role = "coach"
	RoleCourtOwner       Role = "court_owner"
	RoleSportCenterOwner Role = "sport_center_owner"
	RoleAdmin            Role = "admin"
)

type SportCenter struct {
	ID      uuid.UUID `db:"id"`
	OwnerID uuid.UUID `db:"owner_id"`
	Name    string    `db:"name"`
}

type Court struct {
	ID            uuid.UUID       `db:"id"`
	SportCenterID uuid.UUID       `db:"sport_center_id"`
	Name          string          `db:"name"`
	MinDepositPct decimal.Decimal `db:"min_deposit_pct"`
}

// CourtSchedule prices one time range of a weekday. StartTime and EndTime
// are offsets from midnight.
type CourtSchedule struct {
	ID           uuid.UUID       `db:"id"`
	CourtID      uuid.UUID       `db:"court_id"`
	DayOfWeek    time.Weekday    `db:"day_of_week"`
	StartTime    time.Duration   `db:"start_time"`
	EndTime      time.Duration   `db:"end_time"`
	PricePerHour decimal.Decimal `db:"price_per_hour"`
}

type OutboxMessage struct {
	ID            uuid.UUID  `db:"id"`
	Type          string     `db:"type"`
	Content       string     `db:"content"`
	CreatedAt     time.Time  `db:"created_at"`
	ProcessedAt   *time.Time `db:"processed_at"`
	Error         *string    `db:"error"`
	Attempts      int        `db:"attempts"`
	NextAttemptAt time.Time  `db:"next_attempt_at"`
}

type TransactionType string

const (
	TransactionTypeTopUp          TransactionType = "top_up"
	TransactionTypeBookingPayment TransactionType = "booking_payment"
	TransactionTypeRefund         TransactionType = "refund"
	TransactionTypeRefundReversal TransactionType = "refund_reversal"
)

type UserWallet struct {
	UserID    uuid.UUID       `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type WalletTransaction struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	Amount          decimal.Decimal `db:"amount"`
	TransactionType TransactionType `db:"transaction_type"`
	ReferenceID     *string         `db:"reference_id"`
	Description     string          `db:"description"`
	CreatedAt       time.Time       `db:"created_at"`
}

type Notification struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	Type      string     `db:"type"`
	Title     string     `db:"title"`
	Content   string     `db:"content"`
	CreatedAt time.Time  `db:"created_at"`
	ReadAt    *time.Time `db:"read_at"`
}
