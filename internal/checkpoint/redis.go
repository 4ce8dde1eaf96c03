package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

const redisKeyPrefix = "checkpoint:"

// RedisStore keeps checkpoints in Redis so runner instances can share
// batch progress.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, batchID string) (*batch.Checkpoint, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+batchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return batch.DecodeCheckpoint(raw)
}

func (s *RedisStore) Save(ctx context.Context, batchID string, cp *batch.Checkpoint) error {
	raw, err := batch.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+batchID, raw, 0).Err(); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
