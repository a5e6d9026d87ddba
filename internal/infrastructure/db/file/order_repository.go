package file

import (
	"context"
	"fmt"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

// OrderRepository implements ports.OrderRepository on the file store.
type OrderRepository struct {
	col *collection[domain.Order]
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{col: s.orders}
}

// Create appends a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	return r.col.Update(func(items []domain.Order) ([]domain.Order, error) {
		for _, it := range items {
			if it.ID == o.ID {
				return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, o.ID)
			}
		}
		return append(items, o.Clone()), nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o, ok := r.col.Get(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

// ListByClientPhone returns the customer's orders in submission order.
func (r *OrderRepository) ListByClientPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.col.Filter(func(o domain.Order) bool { return o.Phone == phone }), nil
}

func (r *OrderRepository) ListForAgent(ctx context.Context, agentPhone string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.col.Filter(func(o domain.Order) bool {
		return o.Status == domain.StatusPending || o.AssignedTo(agentPhone)
	}), nil
}

// Update runs mutate under the order collection lock. The mutated order is
// validated before the collection is flushed; any error leaves disk and
// memory untouched.
func (r *OrderRepository) Update(ctx context.Context, id string, mutate ports.OrderMutation) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var updated domain.Order
	err := r.col.Update(func(items []domain.Order) ([]domain.Order, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := mutate(&items[i]); err != nil {
				return nil, err
			}
			if err := items[i].Validate(); err != nil {
				return nil, err
			}
			updated = items[i].Clone()
			return items, nil
		}
		return nil, domain.ErrOrderNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
