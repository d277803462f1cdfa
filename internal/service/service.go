package service

import (
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/consumer"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/outbox"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/bookingservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/notificationservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/walletservice"
)

// Services holds the services of one deployable; the others stay nil.
type Services struct {
	BookingService      *bookingservice.Service
	WalletService       *walletservice.Service
	NotificationService *notificationservice.Service
}

func New(kind config.Kind, cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, publisher *outbox.Publisher, owners bookingservice.OwnerLookup) *Services {
	s := &Services{}
	switch kind {
	case config.KindBooking:
		s.BookingService = bookingservice.New(cfg, repo.Booking, repo.Court, owners, repo.Inbox, publisher, txManager)
	case config.KindPayment:
		s.WalletService = walletservice.New(repo.Wallet, repo.Transaction, publisher, txManager)
	case config.KindNotification:
		s.NotificationService = notificationservice.New(repo.Notification, repo.Inbox)
	}
	return s
}

// Subscriptions maps the bus events this deployable consumes to their
// handlers. The keys double as the queue bindings.
func (s *Services) Subscriptions() map[string]consumer.Handler {
	subs := make(map[string]consumer.Handler)
	if s.BookingService != nil {
		subs[events.TypePaymentSucceeded] = s.BookingService.HandlePaymentSucceeded
	}
	if s.WalletService != nil {
		subs[events.TypeBookingCancelled] = s.WalletService.HandleBookingCancelled
		subs[events.TypeCoachBookingCancelled] = s.WalletService.HandleCoachBookingCancelled
		subs[events.TypeBookingPaymentRejected] = s.WalletService.HandleBookingPaymentRejected
	}
	if s.NotificationService != nil {
		for _, t := range []string{
			events.TypeBookingCancelled,
			events.TypeBookingDetailCancelled,
			events.TypeBookingDepositMade,
			events.TypeBookingPaymentMade,
			events.TypeBookingPaymentRejected,
			events.TypeCoachBookingCancelled,
			events.TypePaymentFailed,
			events.TypeRefundProcessed,
		} {
			subs[t] = s.NotificationService.HandleEvent
		}
	}
	return subs
}
