package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// SubmitOrderInput carries a customer's order submission.
type SubmitOrderInput struct {
	Name           string
	Phone          string
	Address        string
	Cart           []domain.CartItem
	TotalPrice     float64
	DeliveryPrice  float64
	IdempotencyKey string
}

// OrderService covers customer-facing order operations.
type OrderService interface {
	// Submit records a new pending order. When the order is recorded but the
	// notification cannot be dispatched it returns both the order and an
	// error wrapping domain.ErrNotificationFailed.
	Submit(ctx context.Context, input SubmitOrderInput) (*domain.Order, error)
	ListByPhone(ctx context.Context, phone string) ([]domain.Order, error)
}
