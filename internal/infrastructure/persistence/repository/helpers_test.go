package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/migrations"
	"github.com/garyjia/spend-approval/pkg/database"
)

// newTestDB opens a migrated SQLite database in a temp dir
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrationsFS(migrations.FS))
	return db.DB
}

func seedUser(t *testing.T, repo interface {
	Create(context.Context, *entity.User) error
}, name, role, dept string, managerID *int64) *entity.User {
	t.Helper()
	u := &entity.User{Name: name, Email: name + "@example.com", Role: role, Department: dept, ManagerID: managerID, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
