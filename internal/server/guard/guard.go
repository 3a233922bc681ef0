// Package guard implements the per-request authorization checks.
//
// A request moves NoToken → TokenPresent → {Verified, Rejected}; the admin
// variant continues Verified → {Authorized, Forbidden}. On success the
// verified identity is attached to the request context.
package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
)

const (
	ReasonNoToken      = "No token provided"
	ReasonInvalidToken = "Invalid token"
	ReasonUserNotFound = "User not found"
	ReasonNotAdmin     = "User is not an admin"
)

// Error is a guard rejection. Kind is common.ErrUnauthenticated or
// common.ErrForbidden; Reason is safe to show to the caller.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func unauthenticated(reason string) error {
	return &Error{Kind: common.ErrUnauthenticated, Reason: reason}
}

// Verifier checks an access token and returns its identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// AccountFinder resolves the account behind a verified identity.
type AccountFinder interface {
	Find(ctx context.Context, key users.LookupKey) (*models.User, error)
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFromContext returns the identity attached by a guard.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(auth.Identity)
	return id, ok
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, bool) {
	if len(header) < len(common.BearerScheme) || !strings.EqualFold(header[:len(common.BearerScheme)], common.BearerScheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(common.BearerScheme):])
	return token, token != ""
}

// AccessGuard admits any request carrying a valid token.
type AccessGuard struct {
	verifier Verifier
}

func NewAccessGuard(v Verifier) *AccessGuard {
	return &AccessGuard{verifier: v}
}

// Check verifies the Authorization header value and returns ctx with the
// identity attached.
func (g *AccessGuard) Check(ctx context.Context, header string) (context.Context, auth.Identity, error) {
	token, ok := ExtractBearer(header)
	if !ok {
		return ctx, auth.Identity{}, unauthenticated(ReasonNoToken)
	}

	identity, err := g.verifier.Verify(token)
	if err != nil {
		return ctx, auth.Identity{}, unauthenticated(ReasonInvalidToken)
	}

	return WithIdentity(ctx, identity), identity, nil
}

// AdminGuard admits only requests whose verified identity belongs to an
// admin account. The account is looked up by the token's id, never by a
// caller-supplied field.
type AdminGuard struct {
	access     *AccessGuard
	accounts   AccountFinder
	adminEmail string
}

// NewAdminGuard builds an AdminGuard. adminEmail, when non-empty, names an
// account that is treated as admin regardless of its stored flag.
func NewAdminGuard(v Verifier, accounts AccountFinder, adminEmail string) *AdminGuard {
	return &AdminGuard{access: NewAccessGuard(v), accounts: accounts, adminEmail: adminEmail}
}

func (g *AdminGuard) Check(ctx context.Context, header string) (context.Context, auth.Identity, error) {
	_, identity, err := g.access.Check(ctx, header)
	if err != nil {
		return ctx, auth.Identity{}, err
	}

	user, err := g.accounts.Find(ctx, users.ByID(identity.ID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ctx, auth.Identity{}, unauthenticated(ReasonUserNotFound)
		}
		return ctx, auth.Identity{}, err
	}

	if !user.IsAdmin && (g.adminEmail == "" || !strings.EqualFold(user.Email, g.adminEmail)) {
		return ctx, auth.Identity{}, &Error{Kind: common.ErrForbidden, Reason: ReasonNotAdmin}
	}

	return WithIdentity(ctx, identity), identity, nil
}
