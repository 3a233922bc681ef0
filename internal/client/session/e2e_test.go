package session_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/folio/internal/client/client"
	"github.com/dmitrijs2005/folio/internal/client/session"
	"github.com/dmitrijs2005/folio/internal/client/validator"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/guard"
	"github.com/dmitrijs2005/folio/internal/server/password"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
	"github.com/dmitrijs2005/folio/internal/server/rest"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedClock is read by server handlers and the controller alike.
type sharedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *sharedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *sharedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func startServer(t *testing.T, clk *sharedClock) *client.HTTPClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.NewNopLogger()
	repo := users.NewMemoryRepository()
	tokens, err := auth.NewManager([]byte("e2e-secret"), auth.WithClock(clk.Now))
	require.NoError(t, err)

	svc := services.NewUserService(nil, repomanager.NewMemoryRepositoryManager(repo),
		password.New(), tokens, auth.DefaultTTL, log)
	srv := rest.NewServer(":0", log, svc, guard.NewAccessGuard(tokens), guard.NewAdminGuard(tokens, repo, ""))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client.NewHTTPClient(ts.URL, 5*time.Second)
}

func TestSessionLifecycleAgainstServer(t *testing.T) {
	ctx := context.Background()
	clk := &sharedClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	api := startServer(t, clk)

	require.NoError(t, api.Register(ctx, "Ana Lima", "ana@example.com", "s3cret-pass"))

	c := session.NewController(api, session.WithClock(clk.Now))

	_, err := c.Login(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	env, err := c.Login(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", env.Identity.Username)
	assert.True(t, env.ExpiresAt.Equal(clk.Now().Add(auth.DefaultTTL)))

	first, err := c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.AccessToken, first)

	me, err := api.Profile(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me.Email)

	// Inside the refresh window the next Token call swaps in a new token.
	clk.Set(env.ExpiresAt.Add(-29 * time.Minute))
	second, err := c.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	cur, ok := c.Current()
	require.True(t, ok)
	assert.True(t, cur.ExpiresAt.Equal(clk.Now().Add(auth.DefaultTTL)))

	me, err = api.Profile(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", me.Username)

	v := validator.New(c, api, logging.NewNopLogger())
	assert.Equal(t, validator.Status{IsValid: true}, v.Validate(ctx))

	require.NoError(t, c.Logout(ctx))

	_, err = c.Token(ctx)
	assert.ErrorIs(t, err, common.ErrNoSession)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	st := v.Validate(ctx)
	assert.False(t, st.IsValid)
	assert.ErrorIs(t, st.Err, common.ErrUnauthenticated)
}

func TestExpiredTokenRejectedByServer(t *testing.T) {
	ctx := context.Background()
	clk := &sharedClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	api := startServer(t, clk)

	require.NoError(t, api.Register(ctx, "Bo", "bo@example.com", "another-pass"))
	res, err := api.Authenticate(ctx, "bo@example.com", "another-pass")
	require.NoError(t, err)

	clk.Set(res.ExpiresAt.Add(time.Minute))

	_, err = api.Profile(ctx, res.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = api.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}
