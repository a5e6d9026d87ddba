package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// Notifier delivers an order-created notification to the outside world.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, o domain.Order) error
}

// NotificationQueue hands notifications to background workers. Enqueue must
// not block on the notifier itself.
type NotificationQueue interface {
	Enqueue(o domain.Order) error
}

// IdempotencyStore binds a submission key to the order it produced.
//
// Reserve is atomic: of all callers racing on one key exactly one wins and
// gets orderID back; the others get the winner's id. Release frees a key
// still held by orderID, so a submission that failed can be retried.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, orderID string) (winnerID string, won bool, err error)
	Release(ctx context.Context, key, orderID string) error
}
