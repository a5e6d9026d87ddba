// Package notify carries order notifications out of the process.
package notify

import (
	"time"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// EventOrderCreated is the event type and routing key of a new order.
const EventOrderCreated = "order.created"

// Event is the message body every notifier emits.
type Event struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Order      domain.Order `json:"order"`
}

func newOrderCreated(o domain.Order) Event {
	return Event{Type: EventOrderCreated, OccurredAt: time.Now().UTC(), Order: o}
}
