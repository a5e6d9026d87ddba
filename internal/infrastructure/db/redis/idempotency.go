package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyTTL  = 24 * time.Hour
	reserveAttempts = 2
)

// releaseScript deletes the key only while it still holds the caller's id.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyStore maps a submission Idempotency-Key to the order it created.
// Key format: idem:order:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. Keys expire after 24 hours.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL}
}

// Reserve claims key for orderID with SETNX. When another submission holds
// the key, its order id is returned with won == false.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, orderID string) (string, bool, error) {
	k := s.key(key)
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		won, err := s.client.SetNX(ctx, k, orderID, s.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("idempotency reserve: %w", err)
		}
		if won {
			return orderID, true, nil
		}

		winner, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// Released or expired between SETNX and GET.
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("idempotency reserve: %w", err)
		}
		return winner, false, nil
	}
	return "", false, fmt.Errorf("idempotency reserve: key %q kept changing hands", key)
}

// Release drops the reservation if it still belongs to orderID.
func (s *IdempotencyStore) Release(ctx context.Context, key, orderID string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, orderID).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(k string) string {
	return "idem:order:" + k
}
