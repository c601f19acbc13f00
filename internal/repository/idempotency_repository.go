package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "idempotency:txn:"
	idempotencyPending   = "pending"
)

// IdempotencyRepository remembers which transaction a client-supplied
// Idempotency-Key produced. Keys are scoped per owner.
type IdempotencyRepository struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyRepository(client goredis.Cmdable, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{client: client, ttl: ttl}
}

func idempotencyKey(ownerID, key string) string {
	return idempotencyKeyPrefix + ownerID + ":" + key
}

// Reserve claims key for a new request. When the key was already claimed it
// returns reserved=false and the transaction id recorded for it, which is
// empty while the first request is still in flight.
func (r *IdempotencyRepository) Reserve(ctx context.Context, ownerID, key string) (transactionID string, reserved bool, err error) {
	k := idempotencyKey(ownerID, key)
	ok, err := r.client.SetNX(ctx, k, idempotencyPending, r.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	value, err := r.client.Get(ctx, k).Result()
	if errors.Is(err, goredis.Nil) || value == idempotencyPending {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return value, false, nil
}

// Complete records the transaction created for key.
func (r *IdempotencyRepository) Complete(ctx context.Context, ownerID, key, transactionID string) error {
	if err := r.client.Set(ctx, idempotencyKey(ownerID, key), transactionID, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release frees key after a failed request so the client can retry it.
func (r *IdempotencyRepository) Release(ctx context.Context, ownerID, key string) error {
	if err := r.client.Del(ctx, idempotencyKey(ownerID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
