package notificationrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Content, n.CreatedAt)
	if err != nil {
		zap.L().Error("can't save notification", zap.Stringer("user", n.UserID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, created_at, read_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, unreadOnly)
	if err != nil {
		zap.L().Error("can't get notifications", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.CreatedAt, &n.ReadAt); err != nil {
			zap.L().Error("can't scan notification row", zap.Error(err))
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate notification rows", zap.Error(err))
		return nil, err
	}
	return notifications, nil
}

// MarkRead keeps the first read time when called again.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, id, userID, at)
	if err != nil {
		zap.L().Error("can't mark notification read", zap.Stringer("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("notification %s not found", id)
	}
	return nil
}
