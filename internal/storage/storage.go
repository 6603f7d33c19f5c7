package storage

import (
	"context"
	"errors"
	"strings"
)

var _ Storage = (*DiskStorage)(nil)
var _ Storage = (*RedisStorage)(nil)
var _ Storage = (*PsqlStorage)(nil)
var _ Storage = (*MemoryStorage)(nil)
var _ Storage = (*TracedStorage)(nil)

var ErrInvalidKey = errors.New("invalid storage key")

const (
	BackendDisk     = "disk"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Storage is a durable key-value slot holder. A missing key is reported
// with ok == false and a nil error.
type Storage interface {
	GetItem(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
}

func IsValidBackend(backend string) bool {
	switch backend {
	case BackendDisk, BackendRedis, BackendPostgres, BackendMemory:
		return true
	default:
		return false
	}
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
