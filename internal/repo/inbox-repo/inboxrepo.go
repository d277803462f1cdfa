package inboxrepo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

// Repository remembers which bus messages a service has already applied.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// MarkProcessed records messageID and reports whether this is its first
// delivery. Call it inside the transaction that applies the message, so a
// rollback forgets the mark as well.
func (r *Repository) MarkProcessed(ctx context.Context, messageID, eventType string) (bool, error) {
	query := `
		INSERT INTO processed_events (id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, messageID, eventType, time.Now().UTC())
	if err != nil {
		zap.L().Error("can't record processed event", zap.String("id", messageID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
