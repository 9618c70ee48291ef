// Package memory provides in-process storage implementations.
// Data is lost on restart; use the surrealdb backend for persistence.
package memory

import (
	"github.com/bobmcallan/tally/internal/interfaces"
)

// Manager implements interfaces.StorageManager with maps guarded by mutexes.
type Manager struct {
	accounts     *AccountStore
	categories   *CategoryStore
	transactions *TransactionStore
	snapshots    *SnapshotStore
}

// NewManager creates an empty in-memory StorageManager.
func NewManager() *Manager {
	return &Manager{
		accounts:     NewAccountStore(),
		categories:   NewCategoryStore(),
		transactions: NewTransactionStore(),
		snapshots:    NewSnapshotStore(),
	}
}

func (m *Manager) AccountStore() interfaces.AccountStore         { return m.accounts }
func (m *Manager) CategoryStore() interfaces.CategoryStore       { return m.categories }
func (m *Manager) TransactionStore() interfaces.TransactionStore { return m.transactions }
func (m *Manager) SnapshotStore() interfaces.SnapshotStore       { return m.snapshots }
func (m *Manager) Backend() string                               { return "memory" }
func (m *Manager) Close() error                                  { return nil }

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
