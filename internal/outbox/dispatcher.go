package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/mq"
)

// Dispatcher drains pending outbox rows to the bus, oldest first, one row at
// a time. Every row's outcome is stored before the next row is touched.
type Dispatcher struct {
	repo        Repo
	bus         Bus
	registry    *events.Registry
	interval    time.Duration
	limit       uint32
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

func NewDispatcher(cfg *config.Config, repo Repo, bus Bus, registry *events.Registry) *Dispatcher {
	maxAttempts := cfg.OutboxMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		repo:        repo,
		bus:         bus,
		registry:    registry,
		interval:    cfg.OutboxInterval,
		limit:       cfg.OutboxBatch,
		maxAttempts: maxAttempts,
		backoff:     cfg.OutboxRetryBackoff,
		now:         time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	zap.L().Info("Outbox dispatcher started", zap.Duration("interval", d.interval), zap.Uint32("batch", d.limit))
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping outbox dispatcher")
			return
		case <-ticker.C:
			d.processMessages(ctx)
		}
	}
}

func (d *Dispatcher) processMessages(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("Outbox cycle panicked", zap.Any("panic", p))
		}
	}()

	messages, err := d.repo.FindPending(ctx, d.now().UTC(), d.limit)
	if err != nil {
		zap.L().Error("Failed to fetch outbox messages", zap.Error(err))
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		if err := d.dispatch(ctx, msg); err != nil {
			zap.L().Error("Failed to store outbox outcome", zap.Stringer("id", msg.ID), zap.String("type", msg.Type), zap.Error(err))
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg domain.OutboxMessage) error {
	attempts := msg.Attempts + 1

	if _, err := d.registry.Decode(msg.Type, []byte(msg.Content)); err != nil {
		zap.L().Error("Dropping undeliverable outbox message", zap.Stringer("id", msg.ID), zap.String("type", msg.Type), zap.Error(err))
		text := err.Error()
		return d.repo.MarkProcessed(ctx, msg.ID, d.now().UTC(), attempts, &text)
	}

	err := d.bus.Publish(ctx, mq.Message{
		ID:        msg.ID.String(),
		Type:      msg.Type,
		Body:      []byte(msg.Content),
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		text := err.Error()
		if attempts >= d.maxAttempts {
			zap.L().Error("Outbox message exhausted retries", zap.Stringer("id", msg.ID), zap.Int("attempts", attempts), zap.Error(err))
			text = fmt.Sprintf("gave up after %d attempts: %s", attempts, text)
			return d.repo.MarkProcessed(ctx, msg.ID, d.now().UTC(), attempts, &text)
		}
		next := d.now().UTC().Add(d.backoff * time.Duration(attempts))
		zap.L().Warn("Outbox publish failed, retrying later", zap.Stringer("id", msg.ID), zap.Int("attempts", attempts), zap.Time("next", next), zap.Error(err))
		return d.repo.ScheduleRetry(ctx, msg.ID, attempts, next, text)
	}

	return d.repo.MarkProcessed(ctx, msg.ID, d.now().UTC(), attempts, nil)
}
