package file

import (
	"context"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// UserRepository implements ports.UserRepository on the file store.
type UserRepository struct {
	col *collection[domain.User]
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{col: s.users}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := r.col.Get(phone)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// Ensure adds u unless the phone is already known. Known phones are returned
// as stored, which keeps the first-seen role.
func (r *UserRepository) Ensure(ctx context.Context, u domain.User) (*domain.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	stored := u
	created := false
	err := r.col.Update(func(items []domain.User) ([]domain.User, error) {
		for _, it := range items {
			if it.Phone == u.Phone {
				stored = it
				return nil, errNoChange
			}
		}
		created = true
		return append(items, u), nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.col.Filter(func(u domain.User) bool { return u.Role == role }), nil
}
