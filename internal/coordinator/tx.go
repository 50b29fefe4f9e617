package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gorm.io/gorm"
)

// ErrTxFinalized is returned when Commit or Rollback is called on a
// participant whose transaction has already been finalized. Participants
// are single-shot; hitting this outside a best-effort rollback sweep is a
// programming error.
var ErrTxFinalized = errors.New("transaction already finalized")

// Tx is a single migration participant: one open database transaction plus
// the ordered SQL scripts to run inside it.
type Tx interface {
	// ID is stable and unique within a coordinator run.
	ID() string

	// Execute runs every sql script inside the open transaction.
	// It never commits and never rolls back.
	Execute(ctx context.Context) error

	// Commit finalizes the open transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the open transaction.
	Rollback(ctx context.Context) error
}

// MigrationTx runs a group of SQL files inside one open transaction.
//
// The transaction handle is guarded by a mutex so execute, commit and
// rollback never overlap, and is cleared once Commit or Rollback succeeds;
// after that the participant is terminal.
type MigrationTx struct {
	id       string
	sqlFiles []string

	mu sync.Mutex
	tx *gorm.DB // nil once finalized
}

var _ Tx = (*MigrationTx)(nil)

// NewMigrationTx begins a transaction on db and wraps it with the ordered
// sql files to run inside it.
func NewMigrationTx(id string, db *gorm.DB, sqlFiles []string) (*MigrationTx, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	return &MigrationTx{
		id:       id,
		sqlFiles: sqlFiles,
		tx:       tx,
	}, nil
}

func (m *MigrationTx) ID() string {
	return m.id
}

// Execute reads each sql file in order and issues its contents as a single
// query against the open transaction. The first read or database error is
// returned and leaves the transaction open so the coordinator can still
// roll it back.
func (m *MigrationTx) Execute(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return ErrTxFinalized
	}

	for _, file := range m.sqlFiles {
		sql, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read sql file %s: %w", file, err)
		}
		if err := m.tx.WithContext(ctx).Exec(string(sql)).Error; err != nil {
			return fmt.Errorf("exec sql file %s: %w", file, err)
		}
	}

	return nil
}

// Commit finalizes the open transaction. A failed commit keeps the handle:
// the coordinator's best-effort rollback sweep may still attempt an abort
// on it.
func (m *MigrationTx) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return ErrTxFinalized
	}

	if err := m.tx.WithContext(ctx).Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.tx = nil
	return nil
}

// Rollback aborts the open transaction. Same single-shot semantics as
// Commit.
func (m *MigrationTx) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return ErrTxFinalized
	}

	if err := m.tx.WithContext(ctx).Rollback().Error; err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	m.tx = nil
	return nil
}
