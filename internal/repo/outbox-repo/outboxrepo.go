package outboxrepo

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

// Save appends a pending row. It runs on whatever connection ctx carries, so
// inside TXManager.Begin the row shares the caller's transaction.
func (r *Repository) Save(ctx context.Context, msg *domain.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (id, type, content, created_at, attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.Type, msg.Content, msg.CreatedAt, msg.Attempts, msg.NextAttemptAt)
	if err != nil {
		zap.L().Error("can't save outbox message", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindPending(ctx context.Context, now time.Time, limit uint32) ([]domain.OutboxMessage, error) {
	query := `
		SELECT id, type, content, created_at, processed_at, error, attempts, next_attempt_at
		FROM outbox_messages
		WHERE processed_at IS NULL AND next_attempt_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, int(limit))
	if err != nil {
		zap.L().Error("can't get pending outbox messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		err := rows.Scan(&msg.ID, &msg.Type, &msg.Content, &msg.CreatedAt, &msg.ProcessedAt, &msg.Error, &msg.Attempts, &msg.NextAttemptAt)
		if err != nil {
			zap.L().Error("can't scan outbox row", zap.Error(err))
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate outbox rows", zap.Error(err))
		return nil, err
	}
	return messages, nil
}

func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time, attempts int, errText *string) error {
	query := `
		UPDATE outbox_messages
		SET processed_at = $1, error = $2, attempts = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, processedAt, errText, attempts, id)
	if err != nil {
		zap.L().Error("can't mark outbox message processed", zap.Stringer("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, errText string) error {
	query := `
		UPDATE outbox_messages
		SET attempts = $1, next_attempt_at = $2, error = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, attempts, nextAttemptAt, errText, id)
	if err != nil {
		zap.L().Error("can't schedule outbox retry", zap.Stringer("id", id), zap.Error(err))
		return err
	}
	return nil
}
