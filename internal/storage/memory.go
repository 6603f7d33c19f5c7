package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
)

// maxMemoryKeyBytes bounds keys of the memory backend, it is part of the
// entry size freecache has to fit in one slot.
const maxMemoryKeyBytes = 256

var ErrValueTooLarge = errors.New("value exceeds the memory storage entry size")

// MemoryStorage is a process-local, non durable backend, handy for tests and
// throwaway sessions. freecache keeps a single entry within 1/1024 of the
// cache, so the cache is sized from the largest value it must hold.
type MemoryStorage struct {
	cache         *freecache.Cache
	maxValueBytes int
}

func NewMemoryStorage(maxValueBytes int) *MemoryStorage {
	return &MemoryStorage{
		cache:         freecache.NewCache(MemoryCacheSize(maxValueBytes)),
		maxValueBytes: maxValueBytes,
	}
}

// MemoryCacheSize is the freecache size needed to store values of up to
// maxValueBytes under any valid key.
func MemoryCacheSize(maxValueBytes int) int {
	return (maxValueBytes + maxMemoryKeyBytes + freecache.ENTRY_HDR_SIZE) * 1024
}

func (ms *MemoryStorage) MaxValueBytes() int {
	return ms.maxValueBytes
}

func (ms *MemoryStorage) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	if err := ms.validateKey(key); err != nil {
		return nil, false, err
	}

	value, err := ms.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get [%s]: %w", key, err)
	}
	return value, true, nil
}

func (ms *MemoryStorage) SetItem(_ context.Context, key string, value []byte) error {
	if err := ms.validateKey(key); err != nil {
		return err
	}
	if len(value) > ms.maxValueBytes {
		return fmt.Errorf("cache set [%s]: %w: %d > %d bytes", key, ErrValueTooLarge, len(value), ms.maxValueBytes)
	}

	// 0 -> no expiration
	if err := ms.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("cache set [%s]: %w", key, err)
	}
	return nil
}

func (ms *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	if err := ms.validateKey(key); err != nil {
		return err
	}

	ms.cache.Del([]byte(key))
	return nil
}

func (ms *MemoryStorage) validateKey(key string) error {
	if len(key) > maxMemoryKeyBytes {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxMemoryKeyBytes)
	}
	return validateKey(key)
}
