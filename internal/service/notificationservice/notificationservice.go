package notificationservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
)

//go:generate mockgen -source=notificationservice.go -destination=mock_notificationservice.go -package=notificationservice
type Repo interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
}

type InboxRepo interface {
	MarkProcessed(ctx context.Context, messageID, eventType string) (bool, error)
}

type Service struct {
	repo  Repo
	inbox InboxRepo
	now   func() time.Time
}

func New(repo Repo, inbox InboxRepo) *Service {
	return &Service{
		repo:  repo,
		inbox: inbox,
		now:   time.Now,
	}
}

// HandleEvent turns one bus event into user and owner notices. Delivery is
// at most once: the message is marked handled before the notices are
// written, and a notice that fails to store is logged, not retried.
func (s *Service) HandleEvent(ctx context.Context, messageID string, e events.Event) error {
	notices := s.compose(e)
	if len(notices) == 0 {
		return nil
	}

	first, err := s.inbox.MarkProcessed(ctx, messageID, e.EventType())
	if err != nil {
		return err
	}
	if !first {
		zap.L().Info("notification already sent", zap.String("message", messageID), zap.String("type", e.EventType()))
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, n := range notices {
		n := n
		g.Go(func() error {
			if err := s.repo.Create(gCtx, n); err != nil {
				return fmt.Errorf("notify %s: %w", n.UserID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Warn("some notifications were not delivered", zap.String("message", messageID), zap.Error(err))
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	notifications, err := s.repo.FindByUserID(ctx, userID, unreadOnly)
	if err != nil {
		zap.L().Error("failed to list notifications", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	return notifications, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID, s.now().UTC())
}

func (s *Service) compose(e events.Event) []*domain.Notification {
	var notices []*domain.Notification
	add := func(userID uuid.UUID, title, content string) {
		if userID == uuid.Nil {
			return
		}
		notices = append(notices, &domain.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      e.EventType(),
			Title:     title,
			Content:   content,
			CreatedAt: s.now().UTC(),
		})
	}

	switch ev := e.(type) {
	case events.BookingCancelled:
		content := fmt.Sprintf("Your booking on %s was cancelled: %s.", ev.BookingDate.Format(time.DateOnly), ev.Reason)
		if ev.RefundAmount.IsPositive() {
			content += fmt.Sprintf(" A refund of %s is on its way to your wallet.", ev.RefundAmount.StringFixed(2))
		}
		add(ev.UserID, "Booking cancelled", content)
	case events.BookingDetailCancelled:
		add(ev.OwnerID, "Court booking cancelled",
			fmt.Sprintf("The booking of your court on %s from %s to %s was cancelled: %s.",
				ev.BookingDate.Format(time.DateOnly), ev.StartTime, ev.EndTime, ev.Reason))
	case events.CoachBookingCancelled:
		add(ev.UserID, "Coaching session cancelled",
			fmt.Sprintf("Your coaching session was cancelled: %s.", ev.Reason))
		add(ev.CoachID, "Coaching session cancelled",
			fmt.Sprintf("A session booked with you was cancelled: %s. %s will be returned to the customer.", ev.Reason, ev.RefundAmount.StringFixed(2)))
	case events.RefundProcessed:
		add(ev.UserID, "Refund processed",
			fmt.Sprintf("%s was refunded to your wallet.", ev.Amount.StringFixed(2)))
		add(ev.CounterpartyID, "Refund charged",
			fmt.Sprintf("%s was returned to a customer for booking %s.", ev.Amount.StringFixed(2), ev.ReferenceID))
	case events.BookingDepositMade:
		add(ev.UserID, "Deposit received",
			fmt.Sprintf("We received your deposit of %s. Remaining balance: %s.", ev.Amount.StringFixed(2), ev.RemainingBalance.StringFixed(2)))
	case events.BookingPaymentMade:
		add(ev.UserID, "Payment received",
			fmt.Sprintf("We received your payment of %s. Remaining balance: %s.", ev.Amount.StringFixed(2), ev.RemainingBalance.StringFixed(2)))
	case events.BookingPaymentRejected:
		add(ev.UserID, "Payment returned",
			fmt.Sprintf("Your %s of %s could not be applied to your booking: %s. It is being returned to your wallet.",
				ev.Kind, ev.Amount.StringFixed(2), ev.Reason))
	case events.PaymentFailed:
		add(ev.UserID, "Payment failed",
			fmt.Sprintf("Your %s of %s could not be completed: %s.", ev.Kind, ev.Amount.StringFixed(2), ev.Reason))
	}
	return notices
}
