package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultConfirmTimeout = 5 * time.Second

var (
	ErrNotConfirmed = errors.New("broker did not confirm message")
	ErrUnroutable   = errors.New("message returned as unroutable")
)

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type publishFn func(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error)

// Publisher runs its channel in confirm mode and publishes with the
// mandatory flag: Publish returns only after the broker acked the message,
// and a nack, a return or a timeout is an error.
type Publisher struct {
	mu             sync.Mutex
	conn           *amqp.Connection
	ch             *amqp.Channel
	exchange       string
	publish        publishFn
	returns        chan amqp.Return
	confirmTimeout time.Duration
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		closeAll()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	p := &Publisher{
		conn:           conn,
		ch:             ch,
		exchange:       exchange,
		returns:        ch.NotifyReturn(make(chan amqp.Return, 16)),
		confirmTimeout: defaultConfirmTimeout,
	}
	p.publish = func(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error) {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, true, false, msg)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			return nil, errors.New("channel is not in confirm mode")
		}
		return dc, nil
	}
	return p, nil
}

// Publish sends a persistent message routed by its type and waits for the
// broker confirm. amqp channels are not safe for concurrent publishing,
// hence the lock.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.drainReturns()

	confirm, err := p.publish(ctx, msg.Type, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Type,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}

	wCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()
	acked, err := confirm.WaitContext(wCtx)
	if err != nil {
		return fmt.Errorf("publish %s: %w: %w", msg.Type, ErrNotConfirmed, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: %w: nacked", msg.Type, ErrNotConfirmed)
	}

	// The broker sends basic.return before the ack of the same message.
	for {
		select {
		case r, ok := <-p.returns:
			if !ok {
				return nil
			}
			if r.MessageId == msg.ID {
				return fmt.Errorf("publish %s: %w: %s", msg.Type, ErrUnroutable, r.ReplyText)
			}
		default:
			return nil
		}
	}
}

func (p *Publisher) drainReturns() {
	for {
		select {
		case _, ok := <-p.returns:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
