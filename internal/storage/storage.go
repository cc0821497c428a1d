// Package storage opens the credential store selected by configuration.
package storage

import (
	"errors"
	"fmt"

	"winkcloud/auth"
	"winkcloud/internal/storage/bolt"
	"winkcloud/internal/storage/sqlite"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown storage driver")

// Storage is a credential store that owns a resource to release
type Storage interface {
	auth.CredentialStore

	// Lifecycle
	Close() error
}

type memoryStorage struct {
	*auth.MemoryStore
}

func (memoryStorage) Close() error { return nil }

// Open returns the store for driver. An empty driver selects memory.
func Open(driver, path string) (Storage, error) {
	switch driver {
	case "", DriverMemory:
		return memoryStorage{auth.NewMemoryStore(nil)}, nil
	case DriverSQLite:
		if path == "" {
			return nil, fmt.Errorf("storage: sqlite requires a path")
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverBolt:
		if path == "" {
			return nil, fmt.Errorf("storage: bolt requires a path")
		}
		store, err := bolt.New(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
