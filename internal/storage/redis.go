package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/notesapp/pkg"

	"github.com/go-redis/redis/v8"
)

type RedisStorage struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewRedisStorage stores entries under keyPrefix+key. Entries never expire.
func NewRedisStorage(redisClient *redis.Client, keyPrefix string) *RedisStorage {
	return &RedisStorage{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (rs *RedisStorage) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	value, err := rs.redisClient.Get(ctx, rs.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get [%s]: %w", key, err)
	}
	return value, true, nil
}

func (rs *RedisStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := rs.redisClient.Set(ctx, rs.keyPrefix+key, pkg.BytesToString(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set [%s]: %w", key, err)
	}
	return nil
}

func (rs *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := rs.redisClient.Del(ctx, rs.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del [%s]: %w", key, err)
	}
	return nil
}
