package notificationservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func NewMock(t *testing.T) (*Service, *MockRepo, *MockInboxRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	inbox := NewMockInboxRepo(ctrl)
	s := New(repo, inbox)
	s.now = func() time.Time { return now }
	return s, repo, inbox
}

type recorder struct {
	mu      sync.Mutex
	created []*domain.Notification
}

func (r *recorder) record(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, n)
	return nil
}

func (r *recorder) recipients() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.created))
	for _, n := range r.created {
		ids = append(ids, n.UserID)
	}
	return ids
}

func TestService_HandleEvent(t *testing.T) {
	userID := uuid.New()
	ownerID := uuid.New()
	coachID := uuid.New()
	bookingID := uuid.New()

	tests := []struct {
		name       string
		event      events.Event
		recipients []uuid.UUID
	}{
		{
			name: "booking cancelled notifies the user",
			event: events.BookingCancelled{
				BookingID:    bookingID,
				UserID:       userID,
				Reason:       "rain",
				BookingDate:  now,
				RefundAmount: decimal.NewFromInt(100),
			},
			recipients: []uuid.UUID{userID},
		},
		{
			name: "detail cancelled notifies the court owner",
			event: events.BookingDetailCancelled{
				BookingID: bookingID,
				UserID:    userID,
				OwnerID:   ownerID,
				StartTime: "10:00",
				EndTime:   "12:00",
			},
			recipients: []uuid.UUID{ownerID},
		},
		{
			name: "coaching cancellation notifies user and coach",
			event: events.CoachBookingCancelled{
				BookingID:    bookingID,
				UserID:       userID,
				CoachID:      coachID,
				RefundAmount: decimal.NewFromInt(30),
			},
			recipients: []uuid.UUID{userID, coachID},
		},
		{
			name: "refund with counterparty",
			event: events.RefundProcessed{
				ReferenceID:    bookingID,
				UserID:         userID,
				CounterpartyID: coachID,
				Amount:         decimal.NewFromInt(30),
			},
			recipients: []uuid.UUID{userID, coachID},
		},
		{
			name: "refund without counterparty",
			event: events.RefundProcessed{
				ReferenceID: bookingID,
				UserID:      userID,
				Amount:      decimal.NewFromInt(30),
			},
			recipients: []uuid.UUID{userID},
		},
		{
			name: "payment failed",
			event: events.PaymentFailed{
				UserID: userID,
				Amount: decimal.NewFromInt(30),
				Kind:   events.PaymentKindDeposit,
				Reason: "insufficient balance",
			},
			recipients: []uuid.UUID{userID},
		},
		{
			name: "payment handed back",
			event: events.BookingPaymentRejected{
				TransactionID: uuid.New(),
				BookingID:     bookingID,
				UserID:        userID,
				Amount:        decimal.NewFromInt(100),
				Kind:          events.PaymentKindPayment,
				Reason:        "booking is cancelled",
			},
			recipients: []uuid.UUID{userID},
		},
		{
			name: "deposit made",
			event: events.BookingDepositMade{
				BookingID:        bookingID,
				UserID:           userID,
				Amount:           decimal.NewFromInt(100),
				RemainingBalance: decimal.NewFromInt(100),
			},
			recipients: []uuid.UUID{userID},
		},
		{
			name: "payment made",
			event: events.BookingPaymentMade{
				BookingID: bookingID,
				UserID:    userID,
				Amount:    decimal.NewFromInt(100),
			},
			recipients: []uuid.UUID{userID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, inbox := NewMock(t)
			rec := &recorder{}
			inbox.EXPECT().MarkProcessed(gomock.Any(), "msg-1", tt.event.EventType()).Return(true, nil)
			repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(rec.record).Times(len(tt.recipients))

			require.NoError(t, s.HandleEvent(context.Background(), "msg-1", tt.event))
			assert.ElementsMatch(t, tt.recipients, rec.recipients())
			for _, n := range rec.created {
				assert.Equal(t, tt.event.EventType(), n.Type)
				assert.Equal(t, now, n.CreatedAt)
				assert.NotEmpty(t, n.Title)
				assert.NotEmpty(t, n.Content)
			}
		})
	}
}

func TestService_HandleEvent_Redelivery(t *testing.T) {
	s, _, inbox := NewMock(t)
	e := events.BookingCancelled{UserID: uuid.New(), Reason: "rain"}
	inbox.EXPECT().MarkProcessed(gomock.Any(), "msg-1", events.TypeBookingCancelled).Return(false, nil)

	assert.NoError(t, s.HandleEvent(context.Background(), "msg-1", e))
}

func TestService_HandleEvent_NothingToSay(t *testing.T) {
	s, _, _ := NewMock(t)

	assert.NoError(t, s.HandleEvent(context.Background(), "msg-1", events.BookingCreated{UserID: uuid.New()}))
	assert.NoError(t, s.HandleEvent(context.Background(), "msg-2", events.BookingDetailCancelled{UserID: uuid.New()}))
}

func TestService_HandleEvent_InboxError(t *testing.T) {
	s, _, inbox := NewMock(t)
	inbox.EXPECT().MarkProcessed(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	err := s.HandleEvent(context.Background(), "msg-1", events.PaymentFailed{UserID: uuid.New()})
	assert.EqualError(t, err, "db down")
}

func TestService_HandleEvent_DeliveryFailureIsSwallowed(t *testing.T) {
	s, repo, inbox := NewMock(t)
	e := events.CoachBookingCancelled{UserID: uuid.New(), CoachID: uuid.New()}
	inbox.EXPECT().MarkProcessed(gomock.Any(), "msg-1", e.EventType()).Return(true, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed")).Times(2)

	assert.NoError(t, s.HandleEvent(context.Background(), "msg-1", e))
}

func TestService_List(t *testing.T) {
	s, repo, _ := NewMock(t)
	userID := uuid.New()
	want := []domain.Notification{{ID: uuid.New(), UserID: userID, Title: "Refund processed"}}
	repo.EXPECT().FindByUserID(gomock.Any(), userID, true).Return(want, nil)

	got, err := s.List(context.Background(), userID, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	repo.EXPECT().FindByUserID(gomock.Any(), userID, false).Return(nil, errors.New("db down"))
	_, err = s.List(context.Background(), userID, false)
	assert.Error(t, err)
}

func TestService_MarkRead(t *testing.T) {
	s, repo, _ := NewMock(t)
	id, userID := uuid.New(), uuid.New()
	repo.EXPECT().MarkRead(gomock.Any(), id, userID, now).Return(nil)
	assert.NoError(t, s.MarkRead(context.Background(), id, userID))

	missing := domain.NotFound("notification not found")
	repo.EXPECT().MarkRead(gomock.Any(), id, userID, now).Return(missing)
	assert.ErrorIs(t, s.MarkRead(context.Background(), id, userID), missing)
}
