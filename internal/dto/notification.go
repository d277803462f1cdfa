package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationResponseDTO struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type" example:"booking.cancelled"`
	Title     string     `json:"title" example:"Booking cancelled"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
