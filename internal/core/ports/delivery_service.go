package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// DeliveryService covers agent-facing operations.
type DeliveryService interface {
	ListOrders(ctx context.Context, agent domain.Claims) ([]domain.Order, error)
	Assign(ctx context.Context, orderID string, agent domain.Claims) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, agent domain.Claims, status string) (*domain.Order, error)
	ListAgents(ctx context.Context, agent domain.Claims) ([]domain.User, error)
}
