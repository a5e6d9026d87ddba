package service

import "github.com/deliverydz/dispatch-api/internal/core/domain"

// RequireRole fails with ErrForbidden unless the caller holds role.
func RequireRole(c domain.Claims, role string) error {
	if c.Role != role {
		return domain.ErrForbidden
	}
	return nil
}

// RequireOwner fails with ErrNotOwner unless the caller is the order's
// assigned agent.
func RequireOwner(c domain.Claims, o *domain.Order) error {
	if o == nil || !o.AssignedTo(c.Phone) {
		return domain.ErrNotOwner
	}
	return nil
}
