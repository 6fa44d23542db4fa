package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreReserveOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	ok, _, err := s.Reserve(ctx, "k1", "wallet.submitTransaction")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, prior, err := s.Reserve(ctx, "k1", "wallet.submitTransaction")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, prior)

	require.NoError(t, s.Record(ctx, "k1", "0xabc"))
	ok, prior, _ = s.Reserve(ctx, "k1", "wallet.submitTransaction")
	assert.False(t, ok)
	assert.Equal(t, "0xabc", prior)

	require.NoError(t, s.Release(ctx, "k1"))
	ok, _, _ = s.Reserve(ctx, "k1", "wallet.submitTransaction")
	assert.True(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	ok, _, _ := s.Reserve(ctx, "k", "op")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _, _ = s.Reserve(ctx, "k", "op")
	assert.True(t, ok)
}

func TestMemoryStoreConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := s.Reserve(ctx, "same", "op"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

// fakeRedis keeps values in a map and ignores expirations
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: make(map[string]string)}
	s := &RedisStore{client: fake, ttl: time.Hour}

	ok, _, err := s.Reserve(ctx, "k1", "nft.mintNFT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pending:nft.mintNFT", fake.data["idempotency:k1"])

	ok, prior, err := s.Reserve(ctx, "k1", "nft.mintNFT")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, prior)

	require.NoError(t, s.Record(ctx, "k1", "0xfeed"))
	_, prior, _ = s.Reserve(ctx, "k1", "nft.mintNFT")
	assert.Equal(t, "0xfeed", prior)

	require.NoError(t, s.Release(ctx, "k1"))
	assert.NotContains(t, fake.data, "idempotency:k1")
	assert.NoError(t, s.Close())
}
