package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/spend-approval/migrations"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/app.db")
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestRunMigrationsFS_Embedded(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.RunMigrationsFS(migrations.FS))

	for _, table := range []string{"users", "policies", "expenses", "requisitions", "budget_plans", "approvals"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// Second run is a no-op
	require.NoError(t, m.RunMigrationsFS(migrations.FS))
	applied, err := m.AppliedVersions()
	require.NoError(t, err)
	assert.True(t, applied[1])
}

func TestApprovalsSubjectCheck(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrationsFS(migrations.FS))

	_, err := db.Exec(`INSERT INTO users (name, role) VALUES ('a', 'MANAGER')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO expenses (requester_id, amount, created_at, updated_at)
		VALUES (1, 10, '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO requisitions (requester_id, amount, created_at, updated_at)
		VALUES (1, 10, '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO approvals (approver_id, level, created_at) VALUES (1, 1, '2024-01-01 00:00:00')`)
	assert.Error(t, err, "record without subject must be rejected")

	_, err = db.Exec(`INSERT INTO approvals (expense_id, requisition_id, approver_id, level, created_at)
		VALUES (1, 1, 1, 1, '2024-01-01 00:00:00')`)
	assert.Error(t, err, "record with two subjects must be rejected")

	_, err = db.Exec(`INSERT INTO approvals (expense_id, approver_id, level, created_at)
		VALUES (1, 1, 1, '2024-01-01 00:00:00')`)
	assert.NoError(t, err)
}

func TestLoadMigrations(t *testing.T) {
	t.Run("sorts by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"002_add_index.sql":      {Data: []byte("SELECT 2;")},
			"001_initial_schema.sql": {Data: []byte("SELECT 1;")},
			"README.md":              {Data: []byte("ignored")},
		}
		got, err := LoadMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Version)
		assert.Equal(t, "initial_schema", got[0].Name)
		assert.Equal(t, 2, got[1].Version)
	})

	t.Run("rejects bad filename", func(t *testing.T) {
		_, err := LoadMigrations(fstest.MapFS{"schema.sql": {Data: []byte("SELECT 1;")}})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate version", func(t *testing.T) {
		_, err := LoadMigrations(fstest.MapFS{
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"001_b.sql": {Data: []byte("SELECT 1;")},
		})
		assert.ErrorContains(t, err, "duplicate migration version 1")
	})
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	err := m.RunMigrationsFS(fstest.MapFS{"001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); NOT SQL;")}})
	require.Error(t, err)

	applied, err := m.AppliedVersions()
	require.NoError(t, err)
	assert.False(t, applied[1])
}
