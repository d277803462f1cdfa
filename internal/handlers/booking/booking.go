package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/dto"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/bookingservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/utils"
)

//go:generate mockgen -source=booking.go -destination=mock_booking.go -package=booking
type Service interface {
	CreateBooking(ctx context.Context, in bookingservice.CreateInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id, requestedBy uuid.UUID, role domain.Role) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	Checkout(ctx context.Context, id, requestedBy uuid.UUID) (*domain.Booking, error)
	CancelBooking(ctx context.Context, in bookingservice.CancelInput) (*domain.Booking, error)
}

type BookingHandler struct {
	bookingService Service
}

func New(bookingService Service) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateBooking godoc
//
//	@Summary		Create a booking
//	@Description	Book one or more court slots for a day. Every slot is priced from the court schedule.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateBookingRequestDTO	true	"Booking request"
//	@Success		201		{object}	dto.BookingResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		404		{object}	utils.Response	"Court not found"
//	@Failure		422		{object}	utils.Response	"Slot taken or outside opening hours"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/bookings [post]
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	var req dto.CreateBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		utils.RespondWithValidationErrors(w, fields)
		return
	}

	in, err := toCreateInput(userID, req)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.bookingService.CreateBooking(r.Context(), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toResponse(b))
}

// GetBookings godoc
//
//	@Summary		List own bookings
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.BookingResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/bookings [get]
func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	bookings, err := h.bookingService.ListBookings(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.BookingResponseDTO, len(bookings))
	for i := range bookings {
		response[i] = toResponse(&bookings[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetBooking godoc
//
//	@Summary		Get a booking
//	@Description	Visible to the user who booked and to the owners of the booked courts.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Booking id"
//	@Success		200	{object}	dto.BookingResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid booking id"
//	@Failure		403	{object}	utils.Response	"Not allowed"
//	@Failure		404	{object}	utils.Response	"Booking not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/bookings/{id} [get]
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)
	role := domain.Role(r.Context().Value(auth.RoleKey).(string))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}

	b, err := h.bookingService.GetBooking(r.Context(), id, userID, role)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toResponse(b))
}

// Checkout godoc
//
//	@Summary		Move a booking to payment
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Booking id"
//	@Success		200	{object}	dto.BookingResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid booking id"
//	@Failure		403	{object}	utils.Response	"Not allowed"
//	@Failure		404	{object}	utils.Response	"Booking not found"
//	@Failure		422	{object}	utils.Response	"Booking is not pending"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/bookings/{id}/checkout [post]
func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}

	b, err := h.bookingService.Checkout(r.Context(), id, userID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toResponse(b))
}

// CancelBooking godoc
//
//	@Summary		Cancel a booking
//	@Description	Cancels the booking and starts the refund. Court owners may cancel bookings of their courts.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Booking id"
//	@Param			request	body		dto.CancelBookingRequestDTO	true	"Cancellation reason"
//	@Success		200		{object}	dto.BookingResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request"
//	@Failure		403		{object}	utils.Response	"Not allowed"
//	@Failure		404		{object}	utils.Response	"Booking not found"
//	@Failure		422		{object}	utils.Response	"Booking can't be cancelled"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)
	role := domain.Role(r.Context().Value(auth.RoleKey).(string))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}

	var req dto.CancelBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		utils.RespondWithValidationErrors(w, fields)
		return
	}

	b, err := h.bookingService.CancelBooking(r.Context(), bookingservice.CancelInput{
		BookingID:   id,
		Reason:      req.Reason,
		RequestedBy: userID,
		Role:        role,
	})
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toResponse(b))
}

func toCreateInput(userID uuid.UUID, req dto.CreateBookingRequestDTO) (bookingservice.CreateInput, error) {
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return bookingservice.CreateInput{}, fmt.Errorf("invalid date %q", req.Date)
	}
	in := bookingservice.CreateInput{
		UserID:  userID,
		Date:    date,
		Note:    req.Note,
		Details: make([]bookingservice.DetailInput, 0, len(req.Details)),
	}
	for _, d := range req.Details {
		courtID, err := uuid.Parse(d.CourtID)
		if err != nil {
			return bookingservice.CreateInput{}, fmt.Errorf("invalid court id %q", d.CourtID)
		}
		start, err := domain.ParseTimeOfDay(d.StartTime)
		if err != nil {
			return bookingservice.CreateInput{}, fmt.Errorf("invalid start time %q", d.StartTime)
		}
		end, err := domain.ParseTimeOfDay(d.EndTime)
		if err != nil {
			return bookingservice.CreateInput{}, fmt.Errorf("invalid end time %q", d.EndTime)
		}
		in.Details = append(in.Details, bookingservice.DetailInput{CourtID: courtID, StartTime: start, EndTime: end})
	}
	return in, nil
}

func toResponse(b *domain.Booking) dto.BookingResponseDTO {
	details := make([]dto.BookingDetailResponseDTO, len(b.Details))
	for i, d := range b.Details {
		details[i] = dto.BookingDetailResponseDTO{
			ID:         d.ID,
			CourtID:    d.CourtID,
			StartTime:  domain.FormatTimeOfDay(d.StartTime),
			EndTime:    domain.FormatTimeOfDay(d.EndTime),
			TotalPrice: d.TotalPrice,
		}
	}
	return dto.BookingResponseDTO{
		ID:                 b.ID,
		UserID:             b.UserID,
		BookingDate:        b.BookingDate.Format(time.DateOnly),
		Status:             string(b.Status),
		TotalTime:          b.TotalTime,
		TotalPrice:         b.TotalPrice,
		TotalPaid:          b.TotalPaid,
		RemainingBalance:   b.RemainingBalance,
		InitialDeposit:     b.InitialDeposit,
		Note:               b.Note,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt,
		Details:            details,
	}
}
