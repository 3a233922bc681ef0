// Package services contains server-side business logic. UserService handles
// registration, login, profile reads, token refresh, password changes and
// the admin account lookup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
)

// PasswordHasher is the credential store used by the service.
type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, stored string) bool
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(identity auth.Identity, ttl time.Duration) (*auth.Token, error)
}

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	Token    *auth.Token
	Identity auth.Identity
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	issuer      TokenIssuer
	tokenTTL    time.Duration
	logger      logging.Logger
}

// NewUserService wires the service. db may be nil when the repository manager
// is not backed by database/sql; transactions are then skipped.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, issuer TokenIssuer, tokenTTL time.Duration, logger logging.Logger) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTTL
	}
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		tokenTTL:    tokenTTL,
		logger:      logger.With("module", "services.user"),
	}
}

// Slugify lowercases name and joins its whitespace-separated words with "-".
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// NormalizeEmail trims and lowercases email. Accounts are stored and looked up
// by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a freshly salted password hash.
func (s *UserService) Register(ctx context.Context, name, email, plain string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || plain == "" || !strings.Contains(email, "@") {
		return nil, common.ErrorValidation
	}

	hash, err := s.hasher.HashPassword(plain)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Name:         name,
		Slug:         Slugify(name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks email and password and issues an access token.
// Unknown email and wrong password both yield common.ErrUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, email, plain string) (*Session, error) {
	u, err := s.repomanager.Users(s.db).Find(ctx, users.ByEmail(NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, common.ErrorInternal
	}

	if !s.hasher.VerifyPassword(plain, u.PasswordHash) {
		s.logger.Warn(ctx, "login rejected", "user_id", u.ID)
		return nil, common.ErrUnauthenticated
	}

	return s.issue(ctx, u)
}

// Profile returns the current identity of the account behind id.
func (s *UserService) Profile(ctx context.Context, id string) (auth.Identity, error) {
	u, err := s.findActive(ctx, id)
	if err != nil {
		return auth.Identity{}, err
	}
	return identityOf(u), nil
}

// Refresh issues a new token for an already verified identity. The account
// is re-read so that the new token carries its current name and email.
func (s *UserService) Refresh(ctx context.Context, id string) (*Session, error) {
	u, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// ChangePassword replaces the stored hash after checking the current password.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	if next == "" {
		return common.ErrorValidation
	}

	return s.withTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.Find(ctx, users.ByID(id))
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnauthenticated
			}
			return common.ErrorInternal
		}
		if !s.hasher.VerifyPassword(current, u.PasswordHash) {
			return common.ErrUnauthenticated
		}

		hash, err := s.hasher.HashPassword(next)
		if err != nil {
			return err
		}
		if err := repo.UpdatePassword(ctx, id, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}

		s.logger.Info(ctx, "password changed", "user_id", id)
		return nil
	})
}

// Lookup finds an account by any LookupKey.
func (s *UserService) Lookup(ctx context.Context, key users.LookupKey) (*models.User, error) {
	if email, ok := key.(users.ByEmail); ok {
		key = users.ByEmail(NormalizeEmail(string(email)))
	}
	return s.repomanager.Users(s.db).Find(ctx, key)
}

// --- helpers below ---

func (s *UserService) findActive(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Find(ctx, users.ByID(id))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, common.ErrorInternal
	}
	return u, nil
}

func (s *UserService) issue(ctx context.Context, u *models.User) (*Session, error) {
	identity := identityOf(u)
	token, err := s.issuer.Issue(identity, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "user_id", u.ID, "error", err)
		return nil, common.ErrorInternal
	}
	return &Session{Token: token, Identity: identity}, nil
}

func (s *UserService) withTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.repomanager.Users(nil))
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Username: u.Name, Email: u.Email}
}
