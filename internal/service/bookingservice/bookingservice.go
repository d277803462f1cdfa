package bookingservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

//go:generate mockgen -source=bookingservice.go -destination=mock_bookingservice.go -package=bookingservice
type Repo interface {
	Create(ctx context.Context, b *domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	HasOverlap(ctx context.Context, courtID uuid.UUID, date time.Time, start, end time.Duration) (bool, error)
}

type CourtRepo interface {
	FindCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error)
	FindSchedules(ctx context.Context, courtID uuid.UUID) ([]domain.CourtSchedule, error)
	FindOwnerID(ctx context.Context, courtID uuid.UUID) (uuid.UUID, error)
	Lock(ctx context.Context, courtID uuid.UUID) error
}

// OwnerLookup resolves the owner of a court from the court service when the
// local copy does not know the court yet.
type OwnerLookup interface {
	FindOwnerID(ctx context.Context, courtID uuid.UUID) (uuid.UUID, error)
}

type InboxRepo interface {
	MarkProcessed(ctx context.Context, messageID, eventType string) (bool, error)
}

type EventPublisher interface {
	Save(ctx context.Context, e events.Event) error
	PublishNow(ctx context.Context, e events.Event) error
}

type Service struct {
	repo          Repo
	courts        CourtRepo
	remoteOwners  OwnerLookup
	inbox         InboxRepo
	publisher     EventPublisher
	txManager     pg.TXManager
	minDepositPct decimal.Decimal
	refundCutoff  time.Duration
	now           func() time.Time
}

func New(cfg *config.Config, repo Repo, courts CourtRepo, remoteOwners OwnerLookup, inbox InboxRepo, publisher EventPublisher, txManager pg.TXManager) *Service {
	return &Service{
		repo:          repo,
		courts:        courts,
		remoteOwners:  remoteOwners,
		inbox:         inbox,
		publisher:     publisher,
		txManager:     txManager,
		minDepositPct: decimal.NewFromFloat(cfg.MinDepositPct),
		refundCutoff:  cfg.RefundCutoff,
		now:           time.Now,
	}
}

type DetailInput struct {
	CourtID   uuid.UUID
	StartTime time.Duration
	EndTime   time.Duration
}

type CreateInput struct {
	UserID  uuid.UUID
	Date    time.Time
	Note    string
	Details []DetailInput
}

type CancelInput struct {
	BookingID   uuid.UUID
	Reason      string
	RequestedBy uuid.UUID
	Role        domain.Role
}

// CreateBooking prices the requested slots and stores the booking. The
// overlap check runs under the court row locks so two requests for the same
// slot cannot both pass it.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	if len(in.Details) == 0 {
		return nil, domain.InvalidOperation("a booking needs at least one slot")
	}

	b := domain.NewBooking(in.UserID, in.Date, in.Note)
	for _, d := range in.Details {
		court, err := s.courts.FindCourt(ctx, d.CourtID)
		if err != nil {
			return nil, err
		}
		schedules, err := s.courts.FindSchedules(ctx, d.CourtID)
		if err != nil {
			return nil, err
		}

		pct := court.MinDepositPct
		if pct.IsZero() {
			pct = s.minDepositPct
		}
		if _, err := b.AddDetail(d.CourtID, d.StartTime, d.EndTime, schedules, pct); err != nil {
			return nil, err
		}
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		for _, courtID := range courtIDs(b) {
			if err := s.courts.Lock(ctx, courtID); err != nil {
				return err
			}
		}
		for _, d := range b.Details {
			taken, err := s.repo.HasOverlap(ctx, d.CourtID, b.BookingDate, d.StartTime, d.EndTime)
			if err != nil {
				return err
			}
			if taken {
				return domain.InvalidOperation("court %s is already booked between %s and %s",
					d.CourtID, domain.FormatTimeOfDay(d.StartTime), domain.FormatTimeOfDay(d.EndTime))
			}
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		return s.publisher.Save(ctx, events.BookingCreated{
			BookingID:      b.ID,
			UserID:         b.UserID,
			BookingDate:    b.BookingDate,
			TotalPrice:     b.TotalPrice,
			InitialDeposit: b.InitialDeposit,
			CreatedAt:      b.CreatedAt,
		})
	})
	if err != nil {
		zap.L().Error("failed to create booking", zap.Stringer("user", in.UserID), zap.Error(err))
		return nil, err
	}
	return b, nil
}

// courtIDs returns the distinct courts of b in a fixed order so concurrent
// bookings take their locks the same way round.
func courtIDs(b *domain.Booking) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(b.Details))
	ids := make([]uuid.UUID, 0, len(b.Details))
	for _, d := range b.Details {
		if _, ok := seen[d.CourtID]; ok {
			continue
		}
		seen[d.CourtID] = struct{}{}
		ids = append(ids, d.CourtID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *Service) GetBooking(ctx context.Context, id, requestedBy uuid.UUID, role domain.Role) (*domain.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, b, requestedBy, role); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	bookings, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to list bookings", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return bookings, nil
}

// Checkout moves a pending booking to PendingPayment while the user pays
// through an external provider.
func (s *Service) Checkout(ctx context.Context, id, requestedBy uuid.UUID) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.UserID != requestedBy {
			return domain.Unauthorized("booking %s belongs to another user", id)
		}
		if err := locked.AwaitPayment(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, locked); err != nil {
			return err
		}
		b = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels the booking and stores one booking-level and one
// per-slot cancellation event in the same transaction as the status change.
// The booking row is locked for the whole transaction, so of two concurrent
// cancellations the second finds the booking cancelled.
func (s *Service) CancelBooking(ctx context.Context, in CancelInput) (*domain.Booking, error) {
	b, err := s.repo.FindByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.BookingStatusCancelled {
		return nil, domain.InvalidOperation("booking %s is already cancelled", b.ID)
	}
	if err := s.authorize(ctx, b, in.RequestedBy, in.Role); err != nil {
		return nil, err
	}
	owners := s.resolveOwners(ctx, b)

	var (
		cancelled *domain.Booking
		refund    decimal.Decimal
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if locked.Status == domain.BookingStatusCancelled {
			return domain.InvalidOperation("booking %s is already cancelled", locked.ID)
		}

		at := s.now().UTC()
		refund = s.refundAmount(locked, at)
		if err := locked.Cancel(in.Reason, at); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, locked); err != nil {
			return err
		}
		err = s.publisher.Save(ctx, events.BookingCancelled{
			BookingID:    locked.ID,
			UserID:       locked.UserID,
			CancelledBy:  in.RequestedBy,
			Reason:       in.Reason,
			CancelledAt:  at,
			BookingDate:  locked.BookingDate,
			TotalPaid:    locked.TotalPaid,
			RefundAmount: refund,
		})
		if err != nil {
			return err
		}
		for _, d := range locked.Details {
			err := s.publisher.Save(ctx, events.BookingDetailCancelled{
				BookingID:   locked.ID,
				DetailID:    d.ID,
				UserID:      locked.UserID,
				CourtID:     d.CourtID,
				OwnerID:     owners[d.CourtID],
				BookingDate: locked.BookingDate,
				StartTime:   domain.FormatTimeOfDay(d.StartTime),
				EndTime:     domain.FormatTimeOfDay(d.EndTime),
				TotalPrice:  d.TotalPrice,
				Reason:      in.Reason,
				CancelledAt: at,
			})
			if err != nil {
				return err
			}
		}
		cancelled = locked
		return nil
	})
	if err != nil {
		zap.L().Error("failed to cancel booking", zap.Stringer("booking", in.BookingID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("booking cancelled", zap.Stringer("booking", cancelled.ID), zap.Stringer("refund", refund))
	return cancelled, nil
}

// ApplyPayment folds a successful wallet payment into the booking. A message
// that was already applied is skipped. A payment the booking cannot take
// (cancelled meanwhile, below the deposit, over the balance, wrong payer) is
// answered with booking.payment_rejected so the wallet gets the money back.
func (s *Service) ApplyPayment(ctx context.Context, messageID string, e events.PaymentSucceeded) error {
	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		first, err := s.inbox.MarkProcessed(ctx, messageID, e.EventType())
		if err != nil {
			return err
		}
		if !first {
			zap.L().Info("payment already applied", zap.String("message", messageID), zap.Stringer("booking", e.BookingID))
			return nil
		}

		b, err := s.repo.FindByIDForUpdate(ctx, e.BookingID)
		if err == nil {
			err = s.takePayment(b, e)
		}
		if isRejection(err) {
			zap.L().Warn("payment rejected", zap.Stringer("booking", e.BookingID),
				zap.Stringer("transaction", e.TransactionID), zap.Error(err))
			return s.publisher.Save(ctx, events.BookingPaymentRejected{
				TransactionID: e.TransactionID,
				BookingID:     e.BookingID,
				UserID:        e.UserID,
				Amount:        e.Amount,
				Kind:          e.Kind,
				Reason:        err.Error(),
				RejectedAt:    s.now().UTC(),
			})
		}
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		for _, ev := range b.PullEvents() {
			if err := s.publisher.Save(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) takePayment(b *domain.Booking, e events.PaymentSucceeded) error {
	if b.UserID != e.UserID {
		return domain.Unauthorized("payment by %s does not match booking owner", e.UserID)
	}
	switch e.Kind {
	case events.PaymentKindDeposit:
		return b.MakeDeposit(e.Amount, e.OccurredAt)
	case events.PaymentKindPayment:
		return b.MakePayment(e.Amount, e.OccurredAt)
	default:
		return domain.InvalidOperation("unknown payment kind %q", e.Kind)
	}
}

// isRejection reports whether the booking itself refused the payment, as
// opposed to an infrastructure failure worth retrying.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrInvalidOperation)
}

// HandlePaymentSucceeded is the bus entry point for payment.succeeded.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, messageID string, e events.Event) error {
	paid, ok := e.(events.PaymentSucceeded)
	if !ok {
		return domain.InvalidOperation("unexpected event %s", e.EventType())
	}
	return s.ApplyPayment(ctx, messageID, paid)
}

func (s *Service) authorize(ctx context.Context, b *domain.Booking, requestedBy uuid.UUID, role domain.Role) error {
	if b.UserID == requestedBy {
		return nil
	}
	if role != domain.RoleCourtOwner && role != domain.RoleSportCenterOwner {
		return domain.Unauthorized("booking %s belongs to another user", b.ID)
	}
	if len(b.Details) == 0 {
		return domain.Unauthorized("booking %s has no court owned by the requester", b.ID)
	}
	for _, d := range b.Details {
		ownerID, err := s.lookupOwner(ctx, d.CourtID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Unauthorized("owner of court %s is unknown", d.CourtID)
		}
		if err != nil {
			return fmt.Errorf("resolve owner of court %s: %w", d.CourtID, err)
		}
		if ownerID != requestedBy {
			return domain.Unauthorized("court %s is owned by another sport center", d.CourtID)
		}
	}
	return nil
}

func (s *Service) lookupOwner(ctx context.Context, courtID uuid.UUID) (uuid.UUID, error) {
	ownerID, err := s.courts.FindOwnerID(ctx, courtID)
	if errors.Is(err, domain.ErrNotFound) && s.remoteOwners != nil {
		zap.L().Info("court owner not known locally, asking court service", zap.Stringer("court", courtID))
		return s.remoteOwners.FindOwnerID(ctx, courtID)
	}
	return ownerID, err
}

// resolveOwners is best effort: a court whose owner cannot be found is
// reported with uuid.Nil and the owner notice is skipped downstream.
func (s *Service) resolveOwners(ctx context.Context, b *domain.Booking) map[uuid.UUID]uuid.UUID {
	owners := make(map[uuid.UUID]uuid.UUID, len(b.Details))
	for _, d := range b.Details {
		if _, ok := owners[d.CourtID]; ok {
			continue
		}
		ownerID, err := s.lookupOwner(ctx, d.CourtID)
		if err != nil {
			zap.L().Warn("can't resolve court owner", zap.Stringer("court", d.CourtID), zap.Error(err))
		}
		owners[d.CourtID] = ownerID
	}
	return owners
}

// refundAmount returns everything paid when the booking is cancelled at
// least refundCutoff before its first slot, nothing otherwise.
func (s *Service) refundAmount(b *domain.Booking, at time.Time) decimal.Decimal {
	if !b.TotalPaid.IsPositive() {
		return decimal.Zero
	}
	if b.EarliestStart().Sub(at) < s.refundCutoff {
		return decimal.Zero
	}
	return b.TotalPaid
}
