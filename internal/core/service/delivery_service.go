package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

// conflictRetries bounds how often a read-modify-write is replayed after an
// optimistic backend reports domain.ErrConflict.
const conflictRetries = 3

type DeliveryService struct {
	orders ports.OrderRepository
	users  ports.UserRepository
	log    zerolog.Logger
}

func NewDeliveryService(orders ports.OrderRepository, users ports.UserRepository, log zerolog.Logger) *DeliveryService {
	return &DeliveryService{orders: orders, users: users, log: log}
}

// ListOrders returns the orders an agent can act on: every pending order plus
// the ones already assigned to the agent.
func (s *DeliveryService) ListOrders(ctx context.Context, agent domain.Claims) ([]domain.Order, error) {
	if err := RequireRole(agent, domain.RoleAgent); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListForAgent(ctx, agent.Phone)
	if err != nil {
		return nil, fmt.Errorf("list delivery orders: %w", err)
	}
	return orders, nil
}

// Assign claims a pending order for the calling agent. Exactly one of several
// concurrent callers succeeds; the others get domain.ErrAlreadyAssigned.
func (s *DeliveryService) Assign(ctx context.Context, orderID string, agent domain.Claims) (*domain.Order, error) {
	if err := RequireRole(agent, domain.RoleAgent); err != nil {
		return nil, err
	}

	order, err := s.update(ctx, orderID, func(o *domain.Order) error {
		return o.Assign(agent.Phone, agent.Username)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID).Str("agent", agent.Phone).Msg("order assigned")
	return order, nil
}

// UpdateStatus moves an assigned order along on behalf of its agent.
func (s *DeliveryService) UpdateStatus(ctx context.Context, orderID string, agent domain.Claims, status string) (*domain.Order, error) {
	if err := RequireRole(agent, domain.RoleAgent); err != nil {
		return nil, err
	}
	next := domain.OrderStatus(status)
	if !next.IsProgress() {
		return nil, fmt.Errorf("%w: %q is not a delivery status", domain.ErrInvalidTransition, status)
	}

	order, err := s.update(ctx, orderID, func(o *domain.Order) error {
		if o.Status != domain.StatusPending {
			if err := RequireOwner(agent, o); err != nil {
				return err
			}
		}
		return o.Advance(agent.Phone, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID).Str("agent", agent.Phone).Str("status", string(order.Status)).Msg("order status updated")
	return order, nil
}

// ListAgents returns the agent directory.
func (s *DeliveryService) ListAgents(ctx context.Context, agent domain.Claims) ([]domain.User, error) {
	if err := RequireRole(agent, domain.RoleAgent); err != nil {
		return nil, err
	}
	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (s *DeliveryService) update(ctx context.Context, orderID string, mutate ports.OrderMutation) (*domain.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		order, err := s.orders.Update(ctx, orderID, mutate)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
		s.log.Debug().Str("order_id", orderID).Int("attempt", attempt).Msg("write conflict, retrying")
	}
	return nil, lastErr
}
