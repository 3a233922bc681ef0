package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresManager_Users(t *testing.T) {
	db := newDB(t)

	m := NewPostgresRepositoryManager()
	repo := m.Users(db)

	_, ok := repo.(*users.PostgresRepository)
	assert.True(t, ok, "expected *users.PostgresRepository, got %T", repo)
}

func TestRunMigrations_Success(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("migrate failed")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	require.ErrorIs(t, err, boom)
}

func TestMemoryManager_SharesRepository(t *testing.T) {
	repo := users.NewMemoryRepository()
	m := NewMemoryRepositoryManager(repo)

	assert.Same(t, repo, m.Users(nil))
	assert.Same(t, m.Users(nil), m.Users(newDB(t)))
	require.NoError(t, m.RunMigrations(context.Background(), nil))

	assert.NotNil(t, NewMemoryRepositoryManager(nil).Users(nil))
}
