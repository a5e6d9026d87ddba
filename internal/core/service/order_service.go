package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

const (
	replayAttempts = 5
	replayWait     = 20 * time.Millisecond
)

type OrderService struct {
	orders      ports.OrderRepository
	users       ports.UserRepository
	queue       ports.NotificationQueue
	idempotency ports.IdempotencyStore
	logger      zerolog.Logger
	replayWait  time.Duration
}

// NewOrderService wires the customer order use cases. idempotency may be nil,
// in which case Idempotency-Key headers are ignored.
func NewOrderService(
	orders ports.OrderRepository,
	users ports.UserRepository,
	queue ports.NotificationQueue,
	idempotency ports.IdempotencyStore,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		users:       users,
		queue:       queue,
		idempotency: idempotency,
		logger:      logger,
		replayWait:  replayWait,
	}
}

// Submit records a pending order, then hands the notification to the queue.
// A failed hand-off never undoes the recorded order.
//
// With an Idempotency-Key the key is reserved before the order is written,
// so concurrent submissions sharing a key produce a single order.
func (s *OrderService) Submit(ctx context.Context, input ports.SubmitOrderInput) (*domain.Order, error) {
	if err := validateSubmission(input); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := input.IdempotencyKey
	reserved := false
	if key != "" && s.idempotency != nil {
		winner, won, err := s.idempotency.Reserve(ctx, key, id)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, submitting anyway")
		case !won:
			return s.replay(ctx, key, winner)
		default:
			reserved = true
		}
	}

	order := &domain.Order{
		ID:            id,
		Name:          strings.TrimSpace(input.Name),
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		Cart:          append([]domain.CartItem(nil), input.Cart...),
		TotalPrice:    input.TotalPrice,
		DeliveryPrice: input.DeliveryPrice,
		Status:        domain.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Msg("failed to record order")
		if reserved {
			if rerr := s.idempotency.Release(ctx, key, id); rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", key).Msg("failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("submit order: %w", err)
	}
	s.logger.Info().Str("order_id", order.ID).Str("phone", order.Phone).Msg("order recorded")

	// The customer phone becomes a known client identity on first sight.
	if _, _, err := s.users.Ensure(ctx, domain.User{
		Phone:     order.Phone,
		Username:  order.Name,
		Role:      domain.RoleClient,
		CreatedAt: order.CreatedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Str("phone", order.Phone).Msg("failed to register customer identity")
	}

	if err := s.queue.Enqueue(*order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("notification not dispatched")
		return order, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return order, nil
}

// replay returns the order recorded by the submission holding key. The
// holder may still be writing it, so a missing order is polled briefly
// before the caller is told to retry.
func (s *OrderService) replay(ctx context.Context, key, orderID string) (*domain.Order, error) {
	for attempt := 1; ; attempt++ {
		existing, err := s.orders.FindByID(ctx, orderID)
		if err == nil {
			s.logger.Info().Str("idempotency_key", key).Str("order_id", existing.ID).Msg("idempotent replay")
			return existing, nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return nil, fmt.Errorf("idempotent replay: %w", err)
		}
		if attempt == replayAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.replayWait):
		}
	}
	s.logger.Warn().Str("idempotency_key", key).Str("order_id", orderID).Msg("submission with this key still in progress")
	return nil, fmt.Errorf("%w: submission with key %q still in progress", domain.ErrConflict, key)
}

func (s *OrderService) ListByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}
	orders, err := s.orders.ListByClientPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func validateSubmission(in ports.SubmitOrderInput) error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(in.Address) == "" {
		missing = append(missing, "address")
	}
	if len(in.Cart) == 0 {
		missing = append(missing, "cart")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if in.TotalPrice < 0 || in.DeliveryPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", domain.ErrValidation)
	}
	for _, item := range in.Cart {
		if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
			return fmt.Errorf("%w: every cart item needs a name and a non-negative price", domain.ErrValidation)
		}
	}
	return nil
}
