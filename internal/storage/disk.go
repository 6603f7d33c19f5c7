package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/2beens/notesapp/pkg"

	log "github.com/sirupsen/logrus"
)

// DiskStorage keeps every key in its own file under rootPath.
// Writes go to a temp file first and are renamed over the target, so a
// reader never observes a half written entry.
type DiskStorage struct {
	rootPath string
	mutex    sync.RWMutex
}

func NewDiskStorage(rootPath string) (*DiskStorage, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}

	exists, err := pkg.PathExists(rootPath, true)
	if err != nil {
		return nil, fmt.Errorf("check root path: %w", err)
	}
	if !exists {
		if err := os.MkdirAll(rootPath, 0o755); err != nil {
			return nil, fmt.Errorf("create root path: %w", err)
		}
		log.Debugf("disk storage root created: %s", rootPath)
	}

	return &DiskStorage{
		rootPath: rootPath,
	}, nil
}

func (ds *DiskStorage) entryPath(key string) string {
	return filepath.Join(ds.rootPath, key+".json")
}

func (ds *DiskStorage) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	data, err := os.ReadFile(ds.entryPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read entry [%s]: %w", key, err)
	}
	return data, true, nil
}

func (ds *DiskStorage) SetItem(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	tmpFile, err := os.CreateTemp(ds.rootPath, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("remove temp file %s: %s", tmpName, err)
		}
	}

	if _, err := tmpFile.Write(value); err != nil {
		_ = tmpFile.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, ds.entryPath(key)); err != nil {
		cleanup()
		return fmt.Errorf("rename entry [%s]: %w", key, err)
	}

	return nil
}

func (ds *DiskStorage) RemoveItem(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if err := os.Remove(ds.entryPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove entry [%s]: %w", key, err)
	}
	return nil
}
