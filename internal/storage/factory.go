// Package storage selects and constructs the persistence backend.
package storage

import (
	"fmt"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/storage/memory"
	"github.com/bobmcallan/tally/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendMemory    = "memory"
)

// NewStorageManager creates the storage manager named by config.Storage.Backend.
// Supported backends: "surrealdb" (default), "memory".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSurrealDB
	}

	switch backend {
	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	case BackendMemory:
		logger.Warn().Msg("Using in-memory storage; data will not survive a restart")
		return memory.NewManager(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, memory)", backend)
	}
}
