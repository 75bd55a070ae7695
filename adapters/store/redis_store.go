package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes KEYS[1] only if it still holds ARGV[1].
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore is a Redis implementation of the NonceStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "faucet:nonce:",
	}
}

var _ ports.NonceStore = (*RedisStore)(nil)

// Issue stores a fresh nonce for address with the given expiration
func (s *RedisStore) Issue(ctx context.Context, address string, ttl time.Duration) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, s.prefix+address, nonce, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %v: %w", err, core.ErrStoreOperationFailed)
	}

	return nonce, nil
}

// Consume removes the nonce for address when it matches
func (s *RedisStore) Consume(ctx context.Context, address, nonce string) (bool, error) {
	deleted, err := consumeScript.Run(ctx, s.client, []string{s.prefix + address}, nonce).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %v: %w", err, core.ErrStoreOperationFailed)
	}

	return deleted == 1, nil
}
