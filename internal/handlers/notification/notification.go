package notification

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/dto"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/utils"
)

//go:generate mockgen -source=notification.go -destination=mock_notification.go -package=notification
type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type NotificationHandler struct {
	notificationService Service
}

func New(notificationService Service) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications godoc
//
//	@Summary		List notifications
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Produce		json
//	@Param			unread	query		bool	false	"Only unread notifications"
//	@Success		200		{array}		dto.NotificationResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid query"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/notifications [get]
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	unreadOnly := false
	if v := r.URL.Query().Get("unread"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		unreadOnly = parsed
	}

	notifications, err := h.notificationService.List(r.Context(), userID, unreadOnly)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.NotificationResponseDTO, len(notifications))
	for i, n := range notifications {
		response[i] = dto.NotificationResponseDTO{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Content:   n.Content,
			CreatedAt: n.CreatedAt,
			ReadAt:    n.ReadAt,
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// MarkRead godoc
//
//	@Summary		Mark a notification as read
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Notification id"
//	@Success		204
//	@Failure		400	{object}	utils.Response	"Invalid notification id"
//	@Failure		404	{object}	utils.Response	"Notification not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), id, userID); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
