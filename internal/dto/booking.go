package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingRequestDTO struct {
	Date    string                    `json:"date" validate:"required,datetime=2006-01-02" example:"2024-06-03"`
	Note    string                    `json:"note" validate:"max=500" example:"Bring spare rackets"`
	Details []BookingDetailRequestDTO `json:"details" validate:"required,min=1,dive"`
}

type BookingDetailRequestDTO struct {
	CourtID   string `json:"court_id" validate:"required,uuid" example:"7b0c3a5e-2f66-4c43-9d2b-1f8a0b6f1e11"`
	StartTime string `json:"start_time" validate:"required" example:"10:00"`
	EndTime   string `json:"end_time" validate:"required" example:"12:00"`
}

type CancelBookingRequestDTO struct {
	Reason string `json:"reason" validate:"required,max=500" example:"Rain forecast"`
}

type BookingResponseDTO struct {
	ID                 uuid.UUID                  `json:"id"`
	UserID             uuid.UUID                  `json:"user_id"`
	BookingDate        string                     `json:"booking_date" example:"2024-06-03"`
	Status             string                     `json:"status" example:"PENDING"`
	TotalTime          decimal.Decimal            `json:"total_time" swaggertype:"string" example:"2"`
	TotalPrice         decimal.Decimal            `json:"total_price" swaggertype:"string" example:"200"`
	TotalPaid          decimal.Decimal            `json:"total_paid" swaggertype:"string" example:"0"`
	RemainingBalance   decimal.Decimal            `json:"remaining_balance" swaggertype:"string" example:"200"`
	InitialDeposit     decimal.Decimal            `json:"initial_deposit" swaggertype:"string" example:"100"`
	Note               string                     `json:"note,omitempty"`
	CancellationReason *string                    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time                 `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	Details            []BookingDetailResponseDTO `json:"details"`
}

type BookingDetailResponseDTO struct {
	ID         uuid.UUID       `json:"id"`
	CourtID    uuid.UUID       `json:"court_id"`
	StartTime  string          `json:"start_time" example:"10:00"`
	EndTime    string          `json:"end_time" example:"12:00"`
	TotalPrice decimal.Decimal `json:"total_price" swaggertype:"string" example:"200"`
}
