package ports

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// TokenVerifier turns a bearer token back into claims.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

type AuthService interface {
	Login(ctx context.Context, phone, username, role string) (string, *domain.User, error)
}
