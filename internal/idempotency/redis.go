package idempotency

import (
	"context"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/interfaces"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ interfaces.IdempotencyStore = (*RedisStore)(nil)

const (
	keyPrefix     = "idempotency:"
	pendingMarker = "pending:"
)

// redisClient is the subset of go-redis the store uses
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares idempotency keys between processes. A reserved key
// holds "pending:<operation>" until the tx hash is recorded.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisStore connects to redis and checks the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key, operation string) (bool, string, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker+operation, s.ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, operation)
	}
	if err != nil {
		return false, "", err
	}
	if strings.HasPrefix(val, pendingMarker) {
		return false, "", nil
	}
	return false, val, nil
}

func (s *RedisStore) Record(ctx context.Context, key, txHash string) error {
	return s.client.Set(ctx, keyPrefix+key, txHash, redis.KeepTTL).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

// Close closes the underlying client when it owns one
func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
