package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletResponseDTO struct {
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance" swaggertype:"string" example:"500.50"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type WalletTransactionResponseDTO struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"-100"`
	Type        string          `json:"type" example:"booking_payment"`
	ReferenceID *string         `json:"reference_id,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PayBookingRequestDTO struct {
	BookingID string          `json:"booking_id" validate:"required,uuid" example:"7b0c3a5e-2f66-4c43-9d2b-1f8a0b6f1e11"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"100"`
	Kind      string          `json:"kind" validate:"required,oneof=deposit payment" example:"deposit"`
}

type TopUpRequestDTO struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"250"`
	Reference string          `json:"reference" validate:"max=100" example:"psp-8c1f2e"`
}
