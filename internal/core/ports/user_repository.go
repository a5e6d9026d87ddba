package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// UserRepository is the identity table keyed by phone.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	// Ensure stores u unless its phone is already known. It returns the stored
	// identity, so the first-seen role always wins, and whether it was created.
	Ensure(ctx context.Context, u domain.User) (*domain.User, bool, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}
