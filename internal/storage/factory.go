package storage

import (
	"fmt"

	"gatekeep/internal/models"
)

// New creates a storage backend based on configuration.
func New(cfg models.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case models.StorageTypeMemory:
		return NewMemoryStorage(), nil
	case models.StorageTypeSQLite:
		return NewSQLiteStorage(cfg.DSN)
	case models.StorageTypePostgres:
		return NewPostgresStorage(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
