package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
)

var hundred = decimal.NewFromInt(100)

type Booking struct {
	ID                 uuid.UUID       `db:"id"`
	UserID             uuid.UUID       `db:"user_id"`
	BookingDate        time.Time       `db:"booking_date"`
	Status             BookingStatus   `db:"status"`
	TotalTime          decimal.Decimal `db:"total_time"`
	TotalPrice         decimal.Decimal `db:"total_price"`
	TotalPaid          decimal.Decimal `db:"total_paid"`
	RemainingBalance   decimal.Decimal `db:"remaining_balance"`
	InitialDeposit     decimal.Decimal `db:"initial_deposit"`
	Note               string          `db:"note"`
	CancellationReason *string         `db:"cancellation_reason"`
	CancelledAt        *time.Time      `db:"cancelled_at"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
	Details            []BookingDetail

	events []events.Event
}

type BookingDetail struct {
	ID         uuid.UUID       `db:"id"`
	BookingID  uuid.UUID       `db:"booking_id"`
	CourtID    uuid.UUID       `db:"court_id"`
	StartTime  time.Duration   `db:"start_time"`
	EndTime    time.Duration   `db:"end_time"`
	TotalPrice decimal.Decimal `db:"total_price"`
}

// transitions lists single-step moves. Completed and Cancelled are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:        {BookingStatusConfirmed, BookingStatusPendingPayment, BookingStatusCancelled},
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusDeposited, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusDeposited:      {BookingStatusCompleted, BookingStatusCancelled},
}

func CanTransition(from, to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func NewBooking(userID uuid.UUID, date time.Time, note string) *Booking {
	now := time.Now().UTC()
	return &Booking{
		ID:               uuid.New(),
		UserID:           userID,
		BookingDate:      date,
		Status:           BookingStatusPending,
		TotalTime:        decimal.Zero,
		TotalPrice:       decimal.Zero,
		TotalPaid:        decimal.Zero,
		RemainingBalance: decimal.Zero,
		InitialDeposit:   decimal.Zero,
		Note:             note,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// AddDetail prices the slot against the court schedules and folds it into
// the booking totals. On error the booking is left untouched.
func (b *Booking) AddDetail(courtID uuid.UUID, start, end time.Duration, schedules []CourtSchedule, minDepositPct decimal.Decimal) (*BookingDetail, error) {
	if b.Status != BookingStatusPending {
		return nil, InvalidOperation("details can only be added to a pending booking")
	}
	for _, d := range b.Details {
		if d.CourtID == courtID && start < d.EndTime && d.StartTime < end {
			return nil, InvalidOperation("slot %s-%s overlaps another slot of this booking", FormatTimeOfDay(start), FormatTimeOfDay(end))
		}
	}

	price, err := CalculateDetailPrice(schedules, b.BookingDate.Weekday(), start, end)
	if err != nil {
		return nil, err
	}

	detail := BookingDetail{
		ID:         uuid.New(),
		BookingID:  b.ID,
		CourtID:    courtID,
		StartTime:  start,
		EndTime:    end,
		TotalPrice: price,
	}
	b.Details = append(b.Details, detail)
	b.InitialDeposit = b.InitialDeposit.Add(price.Mul(minDepositPct).Div(hundred))
	b.recalculate()
	return &detail, nil
}

func (b *Booking) recalculate() {
	totalPrice := decimal.Zero
	totalTime := decimal.Zero
	for _, d := range b.Details {
		totalPrice = totalPrice.Add(d.TotalPrice)
		totalTime = totalTime.Add(hoursBetween(d.StartTime, d.EndTime))
	}
	b.TotalPrice = totalPrice
	b.TotalTime = totalTime
	b.RemainingBalance = b.TotalPrice.Sub(b.TotalPaid)
	b.UpdatedAt = time.Now().UTC()
}

// AwaitPayment marks a pending booking as waiting on an external payment.
func (b *Booking) AwaitPayment() error {
	if !CanTransition(b.Status, BookingStatusPendingPayment) {
		return InvalidOperation("booking in status %s cannot wait for payment", b.Status)
	}
	b.Status = BookingStatusPendingPayment
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (b *Booking) MakeDeposit(amount decimal.Decimal, at time.Time) error {
	if err := b.checkPayable(amount); err != nil {
		return err
	}
	if outstanding := b.InitialDeposit.Sub(b.TotalPaid); amount.LessThan(outstanding) {
		return InvalidOperation("deposit %s is below the outstanding minimum deposit %s", amount, outstanding)
	}

	paid := b.TotalPaid.Add(amount)
	target := b.Status
	switch {
	case b.TotalPrice.Sub(paid).IsZero():
		target = BookingStatusCompleted
	case paid.GreaterThan(b.InitialDeposit):
		target = BookingStatusDeposited
	case paid.GreaterThanOrEqual(b.InitialDeposit):
		target = BookingStatusConfirmed
	}
	if err := b.promote(target); err != nil {
		return err
	}

	b.TotalPaid = paid
	b.recalculate()
	b.record(events.BookingDepositMade{
		BookingID:        b.ID,
		UserID:           b.UserID,
		Amount:           amount,
		RemainingBalance: b.RemainingBalance,
		Status:           string(b.Status),
		OccurredAt:       at,
	})
	return nil
}

func (b *Booking) MakePayment(amount decimal.Decimal, at time.Time) error {
	if err := b.checkPayable(amount); err != nil {
		return err
	}
	if b.Status != BookingStatusConfirmed && b.Status != BookingStatusDeposited {
		return InvalidOperation("booking in status %s requires a deposit before payments", b.Status)
	}

	paid := b.TotalPaid.Add(amount)
	target := b.Status
	switch {
	case b.TotalPrice.Sub(paid).IsZero():
		target = BookingStatusCompleted
	case paid.GreaterThan(b.InitialDeposit):
		target = BookingStatusDeposited
	}
	if err := b.promote(target); err != nil {
		return err
	}

	b.TotalPaid = paid
	b.recalculate()
	b.record(events.BookingPaymentMade{
		BookingID:        b.ID,
		UserID:           b.UserID,
		Amount:           amount,
		RemainingBalance: b.RemainingBalance,
		Status:           string(b.Status),
		OccurredAt:       at,
	})
	return nil
}

func (b *Booking) checkPayable(amount decimal.Decimal) error {
	if b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted {
		return InvalidOperation("booking in status %s accepts no payments", b.Status)
	}
	if !amount.IsPositive() {
		return InvalidOperation("amount must be positive")
	}
	if amount.GreaterThan(b.RemainingBalance) {
		return InvalidOperation("amount %s exceeds remaining balance %s", amount, b.RemainingBalance)
	}
	return nil
}

// promote moves forward to target, passing through Confirmed when a payment
// skips it.
func (b *Booking) promote(target BookingStatus) error {
	if target == b.Status {
		return nil
	}
	if CanTransition(b.Status, target) {
		b.Status = target
		return nil
	}
	if CanTransition(b.Status, BookingStatusConfirmed) && CanTransition(BookingStatusConfirmed, target) {
		b.Status = target
		return nil
	}
	return InvalidOperation("booking cannot move from %s to %s", b.Status, target)
}

func (b *Booking) Cancel(reason string, at time.Time) error {
	if b.Status == BookingStatusCancelled {
		return InvalidOperation("booking %s is already cancelled", b.ID)
	}
	if !CanTransition(b.Status, BookingStatusCancelled) {
		return InvalidOperation("booking in status %s cannot be cancelled", b.Status)
	}
	b.Status = BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &at
	b.UpdatedAt = at
	return nil
}

// EarliestStart is the start of the first slot on the booking date.
func (b *Booking) EarliestStart() time.Time {
	day := time.Date(b.BookingDate.Year(), b.BookingDate.Month(), b.BookingDate.Day(), 0, 0, 0, 0, b.BookingDate.Location())
	if len(b.Details) == 0 {
		return day
	}
	earliest := b.Details[0].StartTime
	for _, d := range b.Details[1:] {
		earliest = min(earliest, d.StartTime)
	}
	return day.Add(earliest)
}

func (b *Booking) record(e events.Event) {
	b.events = append(b.events, e)
}

// PullEvents returns the events recorded since the last call and forgets them.
func (b *Booking) PullEvents() []events.Event {
	pending := b.events
	b.events = nil
	return pending
}
