// Package users provides account storage and the typed lookup keys used to
// find an account by id, email or slug.
package users

import (
	"context"

	"github.com/dmitrijs2005/folio/internal/server/models"
)

// LookupKey selects a single account. The set of implementations is closed:
// ByID, ByEmail and BySlug.
type LookupKey interface {
	isLookupKey()
}

type ByID string

type ByEmail string

type BySlug string

func (ByID) isLookupKey()    {}
func (ByEmail) isLookupKey() {}
func (BySlug) isLookupKey()  {}

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Find(ctx context.Context, key LookupKey) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
