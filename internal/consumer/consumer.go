package consumer

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
)

var (
	ErrDeliveriesClosed = errors.New("delivery channel closed")
	ErrUnknownEventType = errors.New("handler for unregistered event type")
)

//go:generate mockgen -source=consumer.go -destination=mock_consumer.go -package=consumer
type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Handler applies one decoded event. messageID is stable across
// redeliveries of the same message.
type Handler func(ctx context.Context, messageID string, e events.Event) error

type Consumer struct {
	source   Source
	registry *events.Registry
	handlers map[string]Handler
	workers  int
}

func New(source Source, registry *events.Registry, workers int) *Consumer {
	return &Consumer{
		source:   source,
		registry: registry,
		handlers: make(map[string]Handler),
		workers:  workers,
	}
}

// Handle registers h for an event type. Registration happens before Run.
func (c *Consumer) Handle(eventType string, h Handler) {
	c.handlers[eventType] = h
}

// Run feeds deliveries to the worker pool until ctx is done. In-flight
// messages are allowed to finish before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.checkHandlers(); err != nil {
		return err
	}
	deliveries, err := c.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	pool := NewWorkerPool(c.workers)
	defer pool.Close()

	zap.L().Info("Consumer started", zap.Int("workers", c.workers))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping consumer")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			if err := pool.AddTask(ctx, func() error { return c.process(ctx, d) }); err != nil {
				_ = d.Nack(false, true)
				return nil
			}
		}
	}
}

// checkHandlers fails when a handler is bound to a type the registry cannot
// decode; such a handler would never fire.
func (c *Consumer) checkHandlers() error {
	known := make(map[string]struct{})
	for _, t := range c.registry.Types() {
		known[t] = struct{}{}
	}
	for t := range c.handlers {
		if _, ok := known[t]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEventType, t)
		}
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) error {
	eventType := d.Type
	if eventType == "" {
		eventType = d.RoutingKey
	}
	log := zap.L().With(zap.String("message", d.MessageId), zap.String("type", eventType))

	if d.MessageId == "" {
		log.Error("Message without id rejected")
		return d.Nack(false, false)
	}

	e, err := c.registry.Decode(eventType, d.Body)
	if err != nil {
		log.Error("Undecodable message rejected", zap.Error(err))
		return d.Nack(false, false)
	}

	h, ok := c.handlers[eventType]
	if !ok {
		log.Debug("No handler for message type")
		return d.Ack(false)
	}

	if err := h(ctx, d.MessageId, e); err != nil {
		if isPermanent(err) {
			log.Warn("Message dropped", zap.Error(err))
			return d.Ack(false)
		}
		log.Error("Message handling failed, requeueing", zap.Error(err))
		return d.Nack(false, true)
	}
	return d.Ack(false)
}

// isPermanent reports whether retrying the same message can never succeed.
func isPermanent(err error) bool {
	for _, kind := range []error{
		domain.ErrNotFound,
		domain.ErrUnauthorized,
		domain.ErrInvalidOperation,
		domain.ErrConflict,
		domain.ErrInsufficientBalance,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
