package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// OrderMutation edits a private copy of an order inside a guarded
// read-modify-write. Returning an error aborts the write.
type OrderMutation func(o *domain.Order) error

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByClientPhone returns a customer's orders, oldest first.
	ListByClientPhone(ctx context.Context, phone string) ([]domain.Order, error)
	// ListForAgent returns pending orders plus those assigned to agentPhone.
	ListForAgent(ctx context.Context, agentPhone string) ([]domain.Order, error)
	// Update applies mutate to the stored order atomically with respect to
	// every other Update on the collection, validates the order invariant,
	// and persists the result. Optimistic backends return domain.ErrConflict
	// when another writer won the race; the caller retries.
	Update(ctx context.Context, id string, mutate OrderMutation) (*domain.Order, error)
}
