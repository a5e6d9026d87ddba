package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubOrderRepo struct {
	mu        sync.Mutex
	byID      map[string]domain.Order
	createErr error
	// conflicts makes the next N Update calls fail with ErrConflict.
	conflicts int
	updates   int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{byID: make(map[string]domain.Order)}
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byID[o.ID]; ok {
		return domain.ErrDuplicateOrder
	}
	r.byID[o.ID] = o.Clone()
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := o.Clone()
	return &c, nil
}

func (r *stubOrderRepo) ListByClientPhone(_ context.Context, phone string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.Phone == phone }), nil
}

func (r *stubOrderRepo) ListForAgent(_ context.Context, agentPhone string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool {
		return o.Status == domain.StatusPending || o.AssignedTo(agentPhone)
	}), nil
}

func (r *stubOrderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.byID {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *stubOrderRepo) Update(_ context.Context, id string, mutate ports.OrderMutation) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.conflicts > 0 {
		r.conflicts--
		return nil, domain.ErrConflict
	}
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := o.Clone()
	if err := mutate(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r.byID[id] = c
	out := c.Clone()
	return &out, nil
}

type stubUserRepo struct {
	mu        sync.Mutex
	byPhone   map[string]domain.User
	ensureErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byPhone: make(map[string]domain.User)}
}

func (r *stubUserRepo) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byPhone[phone]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *stubUserRepo) Ensure(_ context.Context, u domain.User) (*domain.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensureErr != nil {
		return nil, false, r.ensureErr
	}
	if existing, ok := r.byPhone[u.Phone]; ok {
		return &existing, false, nil
	}
	r.byPhone[u.Phone] = u
	return &u, true, nil
}

func (r *stubUserRepo) ListByRole(_ context.Context, role string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.byPhone {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubQueue struct {
	mu       sync.Mutex
	err      error
	enqueued []domain.Order
}

func (q *stubQueue) Enqueue(o domain.Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, o)
	return nil
}

// stubIdempotency has SETNX semantics. When arrivals is set, each Reserve
// waits for every other caller to arrive before racing for the key.
type stubIdempotency struct {
	mu         sync.Mutex
	keys       map[string]string
	reserveErr error
	arrivals   *sync.WaitGroup
}

func (s *stubIdempotency) Reserve(_ context.Context, key, orderID string) (string, bool, error) {
	if s.arrivals != nil {
		s.arrivals.Done()
		s.arrivals.Wait()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return "", false, s.reserveErr
	}
	if s.keys == nil {
		s.keys = make(map[string]string)
	}
	if winner, ok := s.keys[key]; ok {
		return winner, false, nil
	}
	s.keys[key] = orderID
	return orderID, true, nil
}

func (s *stubIdempotency) Release(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] == orderID {
		delete(s.keys, key)
	}
	return nil
}

func (s *stubIdempotency) holder(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.keys[key]
	return id, ok
}

var errBoom = errors.New("boom")
