package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownType = errors.New("unknown event type")

type Decoder func(content []byte) (Event, error)

// Registry is the closed set of event shapes a service can redeliver.
// It is filled once at startup and only read afterwards.
type Registry struct {
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

func Register[T Event](r *Registry) {
	var zero T
	r.decoders[zero.EventType()] = func(content []byte) (Event, error) {
		var e T
		if err := json.Unmarshal(content, &e); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", zero.EventType(), err)
		}
		return e, nil
	}
}

func Default() *Registry {
	r := NewRegistry()
	Register[BookingCreated](r)
	Register[BookingCancelled](r)
	Register[BookingDetailCancelled](r)
	Register[BookingDepositMade](r)
	Register[BookingPaymentMade](r)
	Register[BookingPaymentRejected](r)
	Register[CoachBookingCancelled](r)
	Register[PaymentSucceeded](r)
	Register[PaymentFailed](r)
	Register[RefundProcessed](r)
	return r
}

func (r *Registry) Decode(tag string, content []byte) (Event, error) {
	decode, ok := r.decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	return decode(content)
}

func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func Encode(e Event) (string, []byte, error) {
	content, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", e.EventType(), err)
	}
	return e.EventType(), content, nil
}
