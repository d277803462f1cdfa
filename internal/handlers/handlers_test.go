package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/notificationservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	services := &service.Services{
		NotificationService: notificationservice.New(notificationservice.NewMockRepo(ctrl), notificationservice.NewMockInboxRepo(ctrl)),
	}

	h := New(services, auth.NewJWTService("secret"))
	assert.NotNil(t, h.NotificationHandler)
	assert.Nil(t, h.BookingHandler)
	assert.Nil(t, h.WalletHandler)
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockBookingHandler := NewMockBookingHandler(ctrl)
	mockWalletHandler := NewMockWalletHandler(ctrl)
	mockNotificationHandler := NewMockNotificationHandler(ctrl)

	mockBookingHandler.EXPECT().CreateBooking(gomock.Any(), gomock.Any()).AnyTimes()
	mockBookingHandler.EXPECT().GetBookings(gomock.Any(), gomock.Any()).AnyTimes()
	mockBookingHandler.EXPECT().GetBooking(gomock.Any(), gomock.Any()).AnyTimes()
	mockBookingHandler.EXPECT().Checkout(gomock.Any(), gomock.Any()).AnyTimes()
	mockBookingHandler.EXPECT().CancelBooking(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().GetWallet(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().GetTransactions(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().PayBooking(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().TopUp(gomock.Any(), gomock.Any()).AnyTimes()
	mockNotificationHandler.EXPECT().GetNotifications(gomock.Any(), gomock.Any()).AnyTimes()
	mockNotificationHandler.EXPECT().MarkRead(gomock.Any(), gomock.Any()).AnyTimes()

	jwtService := auth.NewJWTService("secret")
	token, err := jwtService.GenerateJWT(uuid.New(), "user", time.Now().Add(time.Hour))
	require.NoError(t, err)

	h := &Handlers{
		BookingHandler:      mockBookingHandler,
		WalletHandler:       mockWalletHandler,
		NotificationHandler: mockNotificationHandler,
		JWTService:          jwtService,
	}

	router := chi.NewRouter()
	h.InitRoutes(router)

	id := uuid.NewString()
	routes := []struct {
		method string
		url    string
	}{
		{"POST", "/api/bookings"},
		{"GET", "/api/bookings"},
		{"GET", "/api/bookings/" + id},
		{"POST", "/api/bookings/" + id + "/checkout"},
		{"POST", "/api/bookings/" + id + "/cancel"},
		{"GET", "/api/wallet"},
		{"GET", "/api/wallet/transactions"},
		{"POST", "/api/wallet/pay"},
		{"POST", "/api/wallet/top-up"},
		{"GET", "/api/notifications"},
		{"POST", "/api/notifications/" + id + "/read"},
	}

	for _, tt := range routes {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			req = httptest.NewRequest(tt.method, tt.url, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitRoutes_OnlyMountedServices(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockWalletHandler := NewMockWalletHandler(ctrl)
	mockWalletHandler.EXPECT().GetWallet(gomock.Any(), gomock.Any())

	jwtService := auth.NewJWTService("secret")
	token, err := jwtService.GenerateJWT(uuid.New(), "user", time.Now().Add(time.Hour))
	require.NoError(t, err)

	router := chi.NewRouter()
	(&Handlers{WalletHandler: mockWalletHandler, JWTService: jwtService}).InitRoutes(router)

	for url, want := range map[string]int{
		"/api/wallet":   http.StatusOK,
		"/api/bookings": http.StatusNotFound,
	} {
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, url)
	}
}
