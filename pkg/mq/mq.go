package mq

import "time"

// Message is one event on the bus. ID is stable across redeliveries so
// consumers can deduplicate on it; Type is used as the routing key.
type Message struct {
	ID        string
	Type      string
	Body      []byte
	Timestamp time.Time
}
