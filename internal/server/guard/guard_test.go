package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager([]byte("guard-secret"))
	require.NoError(t, err)
	return m
}

func bearer(t *testing.T, m *auth.Manager, id auth.Identity) string {
	t.Helper()
	tok, err := m.Issue(id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Value
}

func flipSignatureByte(token string) string {
	b := []byte(token)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func requireGuardError(t *testing.T, err error, kind error, reason string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, reason, ge.Reason)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractBearer(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestAccessGuard(t *testing.T) {
	m := newManager(t)
	g := NewAccessGuard(m)
	id := auth.Identity{ID: "u1", Username: "ana", Email: "ana@example.com"}

	t.Run("no token", func(t *testing.T) {
		_, _, err := g.Check(context.Background(), "")
		requireGuardError(t, err, common.ErrUnauthenticated, ReasonNoToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, _, err := g.Check(context.Background(), flipSignatureByte(bearer(t, m, id)))
		requireGuardError(t, err, common.ErrUnauthenticated, ReasonInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := auth.NewManager([]byte("other"))
		require.NoError(t, err)
		_, _, err = g.Check(context.Background(), bearer(t, other, id))
		requireGuardError(t, err, common.ErrUnauthenticated, ReasonInvalidToken)
	})

	t.Run("valid", func(t *testing.T) {
		ctx, got, err := g.Check(context.Background(), bearer(t, m, id))
		require.NoError(t, err)
		assert.Equal(t, id, got)

		fromCtx, ok := IdentityFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, id, fromCtx)
	})
}

func TestIdentityFromContext_Empty(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}

type errFinder struct{ err error }

func (f errFinder) Find(context.Context, users.LookupKey) (*models.User, error) { return nil, f.err }

func TestAdminGuard(t *testing.T) {
	m := newManager(t)
	repo := users.NewMemoryRepository()
	ctx := context.Background()

	admin, err := repo.Create(ctx, &models.User{Name: "Root", Slug: "root", Email: "root@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.SetAdmin(admin.ID, true))

	plain, err := repo.Create(ctx, &models.User{Name: "Ana", Slug: "ana", Email: "ana@example.com"})
	require.NoError(t, err)

	override, err := repo.Create(ctx, &models.User{Name: "Owner", Slug: "owner", Email: "Owner@Example.com"})
	require.NoError(t, err)

	g := NewAdminGuard(m, repo, "owner@example.com")

	t.Run("admin allowed", func(t *testing.T) {
		id := auth.Identity{ID: admin.ID, Username: "Root", Email: "root@example.com"}
		gotCtx, got, err := g.Check(ctx, bearer(t, m, id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
		fromCtx, ok := IdentityFromContext(gotCtx)
		require.True(t, ok)
		assert.Equal(t, id, fromCtx)
	})

	t.Run("non admin forbidden", func(t *testing.T) {
		_, _, err := g.Check(ctx, bearer(t, m, auth.Identity{ID: plain.ID}))
		requireGuardError(t, err, common.ErrForbidden, ReasonNotAdmin)
	})

	t.Run("token claims do not grant admin", func(t *testing.T) {
		// Email in the token matches the override, but the account behind the id does not.
		_, _, err := g.Check(ctx, bearer(t, m, auth.Identity{ID: plain.ID, Email: "owner@example.com"}))
		requireGuardError(t, err, common.ErrForbidden, ReasonNotAdmin)
	})

	t.Run("override email allowed", func(t *testing.T) {
		_, _, err := g.Check(ctx, bearer(t, m, auth.Identity{ID: override.ID}))
		require.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, _, err := g.Check(ctx, bearer(t, m, auth.Identity{ID: "ghost"}))
		requireGuardError(t, err, common.ErrUnauthenticated, ReasonUserNotFound)
	})

	t.Run("invalid token never reaches lookup", func(t *testing.T) {
		g := NewAdminGuard(m, errFinder{err: errors.New("must not be called")}, "")
		_, _, err := g.Check(ctx, "Bearer junk")
		requireGuardError(t, err, common.ErrUnauthenticated, ReasonInvalidToken)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		boom := errors.New("db down")
		g := NewAdminGuard(m, errFinder{err: boom}, "")
		_, _, err := g.Check(ctx, bearer(t, m, auth.Identity{ID: admin.ID}))
		require.ErrorIs(t, err, boom)
	})
}
