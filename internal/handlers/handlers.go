package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/SCRMS-FPT/SCRMS-BE-sub001/docs"
	bookinghandlers "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/handlers/booking"
	notificationhandlers "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/handlers/notification"
	wallethandlers "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/handlers/wallet"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers
type BookingHandler interface {
	CreateBooking(w http.ResponseWriter, r *http.Request)
	GetBookings(w http.ResponseWriter, r *http.Request)
	GetBooking(w http.ResponseWriter, r *http.Request)
	Checkout(w http.ResponseWriter, r *http.Request)
	CancelBooking(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	PayBooking(w http.ResponseWriter, r *http.Request)
	TopUp(w http.ResponseWriter, r *http.Request)
}

type NotificationHandler interface {
	GetNotifications(w http.ResponseWriter, r *http.Request)
	MarkRead(w http.ResponseWriter, r *http.Request)
}

// Handlers serves the routes of the services present in the deployable.
type Handlers struct {
	BookingHandler      BookingHandler
	WalletHandler       WalletHandler
	NotificationHandler NotificationHandler
	JWTService          auth.JWTServiceInterface
}

func New(s *service.Services, jwtService auth.JWTServiceInterface) *Handlers {
	h := &Handlers{JWTService: jwtService}
	if s.BookingService != nil {
		h.BookingHandler = bookinghandlers.New(s.BookingService)
	}
	if s.WalletService != nil {
		h.WalletHandler = wallethandlers.New(s.WalletService)
	}
	if s.NotificationService != nil {
		h.NotificationHandler = notificationhandlers.New(s.NotificationService)
	}
	return h
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(h.JWTService))

		if h.BookingHandler != nil {
			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", h.BookingHandler.CreateBooking)
				r.Get("/", h.BookingHandler.GetBookings)
				r.Get("/{id}", h.BookingHandler.GetBooking)
				r.Post("/{id}/checkout", h.BookingHandler.Checkout)
				r.Post("/{id}/cancel", h.BookingHandler.CancelBooking)
			})
		}
		if h.WalletHandler != nil {
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Get("/transactions", h.WalletHandler.GetTransactions)
				r.Post("/pay", h.WalletHandler.PayBooking)
				r.Post("/top-up", h.WalletHandler.TopUp)
			})
		}
		if h.NotificationHandler != nil {
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.NotificationHandler.GetNotifications)
				r.Post("/{id}/read", h.NotificationHandler.MarkRead)
			})
		}
	})

	return r
}
