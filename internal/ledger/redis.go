package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/settlegate/settlegate/internal/config"
)

// RedisStore keeps the nonce ledger in Redis so multiple relayer-facing
// instances share one replay view. Keys have no TTL: a consumed nonce stays
// consumed for the system's lifetime.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

func nonceKey(maker common.Address, nonce uint64) string {
	return fmt.Sprintf("nonce:%s:%d", maker.Hex(), nonce)
}

func (s *RedisStore) Used(ctx context.Context, maker common.Address, nonce uint64) (bool, error) {
	n, err := s.client.Exists(ctx, nonceKey(maker, nonce)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, maker common.Address, nonce uint64) error {
	// SETNX makes mark-once atomic across instances
	ok, err := s.client.SetNX(ctx, nonceKey(maker, nonce), "1", 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return replayErr(maker, nonce)
	}
	return nil
}

func (s *RedisStore) Unmark(ctx context.Context, maker common.Address, nonce uint64) error {
	return s.client.Del(ctx, nonceKey(maker, nonce)).Err()
}
