package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T, dsn string) *SQLiteStore {
	t.Helper()
	db, err := OpenSQLite(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteStore(db)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newSQLiteStore(t, ":memory:")
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)

	env := Envelope{
		AccessToken: "tok-1",
		Identity:    ana,
		ExpiresAt:   time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Err:         common.ErrRefreshFailed,
	}
	require.NoError(t, s.Save(ctx, env))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.AccessToken)
	assert.Equal(t, ana, got.Identity)
	assert.True(t, env.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, env.CreatedAt.Equal(got.CreatedAt))
	assert.NoError(t, got.Err)

	env.AccessToken = "tok-2"
	require.NoError(t, s.Save(ctx, env))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.AccessToken)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "state", "session.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteStore(db).Save(ctx, Envelope{AccessToken: "persisted", Identity: ana}))
	require.NoError(t, db.Close())

	s := newSQLiteStore(t, dsn)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.AccessToken)
}

func TestController_WithSQLiteStore(t *testing.T) {
	s := newSQLiteStore(t, ":memory:")
	clk := newClock()
	ctx := context.Background()

	c := newController(t, &fakeBackend{}, clk, WithStore(s))
	env, err := c.Login(ctx, "ana@example.com", "pw")
	require.NoError(t, err)

	restored := newController(t, &fakeBackend{}, clk, WithStore(s))
	got, ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, env.AccessToken, got.AccessToken)

	require.NoError(t, restored.Logout(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestSQLiteStore_Sealed(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sealed := NewSQLiteStore(db, WithPassphrase("local secret"))
	require.NoError(t, sealed.Save(ctx, Envelope{AccessToken: "tok-sealed", Identity: ana}))

	var raw []byte
	require.NoError(t, db.QueryRowContext(ctx, `SELECT access_token FROM session`).Scan(&raw))
	assert.NotContains(t, string(raw), "tok-sealed")

	got, err := sealed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-sealed", got.AccessToken)
	assert.Equal(t, ana, got.Identity)

	_, err = NewSQLiteStore(db).Load(ctx)
	assert.ErrorIs(t, err, ErrSealed)

	_, err = NewSQLiteStore(db, WithPassphrase("wrong")).Load(ctx)
	assert.ErrorIs(t, err, cryptox.ErrOpen)

	// an empty passphrase behaves like none
	plain := NewSQLiteStore(db, WithPassphrase(""))
	require.NoError(t, plain.Save(ctx, Envelope{AccessToken: "tok-plain", Identity: ana}))
	got, err = NewSQLiteStore(db, WithPassphrase("local secret")).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-plain", got.AccessToken)
}
