package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationRegistry shares the blacklist across serving processes.
// Redis key TTLs replace explicit sweeping: an entry disappears exactly when
// the token it blocks would have expired anyway.
type RedisRevocationRegistry struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRevocationRegistry(client redis.UniversalClient, prefix string) *RedisRevocationRegistry {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationRegistry{client: client, prefix: prefix}
}

func (r *RedisRevocationRegistry) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(tokenID), "1", ttl).Err()
}

func (r *RedisRevocationRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRevocationRegistry) Sweep(time.Time) int { return 0 }

func (r *RedisRevocationRegistry) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, tokenID)
}
