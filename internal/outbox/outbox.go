package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/mq"
)

//go:generate mockgen -source=outbox.go -destination=mock_outbox.go -package=outbox
type Repo interface {
	Save(ctx context.Context, msg *domain.OutboxMessage) error
	FindPending(ctx context.Context, now time.Time, limit uint32) ([]domain.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time, attempts int, errText *string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, errText string) error
}

type Bus interface {
	Publish(ctx context.Context, msg mq.Message) error
}

type Publisher struct {
	repo Repo
	bus  Bus
	now  func() time.Time
}

func NewPublisher(repo Repo, bus Bus) *Publisher {
	return &Publisher{
		repo: repo,
		bus:  bus,
		now:  time.Now,
	}
}

// Save writes e as a pending outbox row using the transaction carried by
// ctx, if any. Nothing reaches the bus until the dispatcher picks it up.
func (p *Publisher) Save(ctx context.Context, e events.Event) error {
	tag, content, err := events.Encode(e)
	if err != nil {
		return err
	}
	now := p.now().UTC()
	msg := &domain.OutboxMessage{
		ID:            uuid.New(),
		Type:          tag,
		Content:       string(content),
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	if err := p.repo.Save(ctx, msg); err != nil {
		return fmt.Errorf("save %s to outbox: %w", tag, err)
	}
	return nil
}

// PublishNow sends e straight to the bus. Used for notifications that are
// not tied to any state change, so there is nothing to commit with them.
func (p *Publisher) PublishNow(ctx context.Context, e events.Event) error {
	tag, content, err := events.Encode(e)
	if err != nil {
		return err
	}
	err = p.bus.Publish(ctx, mq.Message{
		ID:        uuid.NewString(),
		Type:      tag,
		Body:      content,
		Timestamp: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", tag, err)
	}
	return nil
}
