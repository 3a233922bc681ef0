package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. It backs the server when
// no database DSN is configured and is used by service and transport tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*models.User
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.User), now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email || u.Slug == user.Slug {
			return nil, common.ErrorAlreadyExists
		}
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.CreatedAt = r.now()
	r.byID[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) Find(ctx context.Context, key LookupKey) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match func(*models.User) bool

	switch k := key.(type) {
	case ByID:
		if u, ok := r.byID[string(k)]; ok {
			out := *u
			return &out, nil
		}
		return nil, common.ErrorNotFound
	case ByEmail:
		match = func(u *models.User) bool { return u.Email == string(k) }
	case BySlug:
		match = func(u *models.User) bool { return u.Slug == string(k) }
	default:
		return nil, fmt.Errorf("unsupported lookup key %T", key)
	}

	for _, u := range r.byID {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// SetAdmin flips the admin flag. Accounts are promoted out of band (SQL or
// seed data), so this exists only on the in-memory store.
func (r *MemoryRepository) SetAdmin(id string, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}
