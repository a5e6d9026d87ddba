package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

// AuthService implements phone-based login on top of the identity table.
type AuthService struct {
	users  ports.UserRepository
	tokens *TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens *TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Login resolves the caller's identity and issues a credential. A phone that
// is already known keeps its recorded role whatever role is requested.
func (s *AuthService) Login(ctx context.Context, phone, username, role string) (string, *domain.User, error) {
	phone = strings.TrimSpace(phone)
	username = strings.TrimSpace(username)
	if phone == "" || username == "" {
		return "", nil, fmt.Errorf("%w: phone and username are required", domain.ErrValidation)
	}
	if role == "" {
		role = domain.RoleClient
	}
	if !domain.ValidRole(role) {
		return "", nil, fmt.Errorf("%w: role must be %s or %s", domain.ErrValidation, domain.RoleClient, domain.RoleAgent)
	}

	user, created, err := s.users.Ensure(ctx, domain.User{
		Phone:     phone,
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("login: resolve identity: %w", err)
	}
	if created {
		s.log.Info().Str("phone", user.Phone).Str("role", user.Role).Msg("identity provisioned")
	} else if user.Role != role {
		s.log.Debug().Str("phone", user.Phone).Str("requested", role).Str("role", user.Role).Msg("requested role ignored for known phone")
	}

	token, err := s.tokens.Issue(domain.Claims{Phone: user.Phone, Username: user.Username, Role: user.Role})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
