package coordinator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tx-coordinator/internal/coordinator"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() {
		db.Close()
	}
}

func writeSQLFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMigrationTxExecute(t *testing.T) {
	t.Run("Execute Runs Files In Order", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		dir := t.TempDir()
		first := writeSQLFile(t, dir, "0-db1-a.sql", `INSERT INTO test_table (id) VALUES (1);`)
		second := writeSQLFile(t, dir, "1-db1-b.sql", `INSERT INTO test_table (id) VALUES (2);`)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO test_table (id) VALUES (1);`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO test_table (id) VALUES (2);`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, []string{first, second})
		require.NoError(t, err)

		assert.Equal(t, "db1", tx.ID())
		assert.NoError(t, tx.Execute(context.Background()))
		assert.NoError(t, tx.Commit(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Execute Read Error Leaves Transaction Open", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, []string{filepath.Join(t.TempDir(), "missing.sql")})
		require.NoError(t, err)

		assert.Error(t, tx.Execute(context.Background()))
		assert.NoError(t, tx.Rollback(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Execute SQL Error Leaves Transaction Open", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		dir := t.TempDir()
		file := writeSQLFile(t, dir, "0-db1-a.sql", `INSERT INTO test_table (id) VALUES (1);`)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO test_table (id) VALUES (1);`)).
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, []string{file})
		require.NoError(t, err)

		assert.Error(t, tx.Execute(context.Background()))
		assert.NoError(t, tx.Rollback(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrationTxSingleShot(t *testing.T) {
	t.Run("Commit Then Commit", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, nil)
		require.NoError(t, err)

		assert.NoError(t, tx.Commit(context.Background()))
		assert.ErrorIs(t, tx.Commit(context.Background()), coordinator.ErrTxFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback After Commit", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, nil)
		require.NoError(t, err)

		assert.NoError(t, tx.Commit(context.Background()))
		assert.ErrorIs(t, tx.Rollback(context.Background()), coordinator.ErrTxFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Execute After Rollback", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := coordinator.NewMigrationTx("db1", gormDB, nil)
		require.NoError(t, err)

		assert.NoError(t, tx.Rollback(context.Background()))
		assert.ErrorIs(t, tx.Execute(context.Background()), coordinator.ErrTxFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed Commit Keeps Handle", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

		tx, err := coordinator.NewMigrationTx("db1", gormDB, nil)
		require.NoError(t, err)

		assert.Error(t, tx.Commit(context.Background()))

		// the handle survives the failed commit so a best-effort abort can
		// still reach the server; database/sql already considers the
		// transaction done, which surfaces here as a rollback error
		err = tx.Rollback(context.Background())
		assert.Error(t, err)
		assert.NotErrorIs(t, err, coordinator.ErrTxFinalized)
	})
}

func TestNewMigrationTx(t *testing.T) {
	t.Run("Begin Failure", func(t *testing.T) {
		gormDB, mock, teardown := setupMockDB(t)
		defer teardown()

		mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

		_, err := coordinator.NewMigrationTx("db1", gormDB, nil)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
