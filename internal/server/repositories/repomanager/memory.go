package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
)

// MemoryRepositoryManager serves one shared in-memory users repository
// regardless of the handle it is given. Used when no DSN is configured.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager(repo *users.MemoryRepository) *MemoryRepositoryManager {
	if repo == nil {
		repo = users.NewMemoryRepository()
	}
	return &MemoryRepositoryManager{users: repo}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }
