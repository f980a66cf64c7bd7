// Package backend assembles the ledger store selected by configuration.
package backend

import (
	"context"

	"shopledger/internal/ledger"
	"shopledger/internal/storage"
)

// CleanupFunc releases the resources held by a Result.
type CleanupFunc func() error

// Result is what a binary needs to run: the ledger store for the selected
// backend and the user repository, which always lives in SQLite.
type Result struct {
	Store   ledger.Store
	Users   *storage.SQLiteRepository
	Events  bool
	Cleanup CleanupFunc
}

// Factory creates a backend from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SnapshotDir  string
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SnapshotBackend BackendType = "snapshot"
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SnapshotBackend, MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
