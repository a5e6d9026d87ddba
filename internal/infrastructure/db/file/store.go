// Package file is the default record store: one JSON document per collection
// under a data directory, rewritten atomically on every committed mutation.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

const (
	ordersFile = "orders.json"
	usersFile  = "users.json"
)

// Store owns the order and identity collections. The two are locked
// independently; no operation spans both.
type Store struct {
	dir    string
	orders *collection[domain.Order]
	users  *collection[domain.User]
}

// Open loads (or initialises) the collections stored in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}

	orders, err := openCollection(filepath.Join(dir, ordersFile),
		func(o domain.Order) string { return o.ID },
		func(o domain.Order) domain.Order { return o.Clone() },
	)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}

	users, err := openCollection(filepath.Join(dir, usersFile),
		func(u domain.User) string { return u.Phone },
		func(u domain.User) domain.User { return u },
	)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}

	return &Store{dir: dir, orders: orders, users: users}, nil
}

// LoadOrders returns every order and the collection version token.
func (s *Store) LoadOrders() ([]domain.Order, uint64) {
	return s.orders.Load()
}

// SaveOrders replaces the order collection. A stale version fails with
// domain.ErrConflict and the caller must reload.
func (s *Store) SaveOrders(orders []domain.Order, version uint64) error {
	return s.orders.Save(orders, version)
}

// LoadUsers returns the identity table and its version token.
func (s *Store) LoadUsers() ([]domain.User, uint64) {
	return s.users.Load()
}

// SaveUsers replaces the identity table under the same rules as SaveOrders.
func (s *Store) SaveUsers(users []domain.User, version uint64) error {
	return s.users.Save(users, version)
}

// Ping reports whether the data directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
