// Package session holds the client's long-lived session envelope around the
// short-lived backend access token.
//
// Token returns a token that is never within RefreshSkew of its expiry: when
// the deadline is close, it refreshes first. Refreshes are single-flight per
// session, and Logout or a new Login discards the result of any refresh still
// in flight. A refused refresh marks the envelope with
// common.ErrRefreshFailed; callers must treat that as a forced logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/folio/internal/client/client"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshSkew    = 30 * time.Minute
	DefaultMaxAge         = 30 * 24 * time.Hour
	DefaultBackendTTL     = 24 * time.Hour
	DefaultRefreshTimeout = 5 * time.Second
)

// Backend is the subset of the API client the controller needs.
type Backend interface {
	Authenticate(ctx context.Context, email, password string) (*client.AuthResult, error)
	Refresh(ctx context.Context, token string) (*client.AuthResult, error)
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithRefreshSkew(d time.Duration) Option {
	return func(c *Controller) { c.skew = d }
}

func WithMaxAge(d time.Duration) Option {
	return func(c *Controller) { c.maxAge = d }
}

// WithBackendTTL sets the token lifetime assumed when the server does not
// report an expiry.
func WithBackendTTL(d time.Duration) Option {
	return func(c *Controller) { c.backendTTL = d }
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Controller) { c.refreshTimeout = d }
}

func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

type Controller struct {
	backend        Backend
	store          Store
	logger         logging.Logger
	now            func() time.Time
	skew           time.Duration
	maxAge         time.Duration
	backendTTL     time.Duration
	refreshTimeout time.Duration

	// mu guards env and gen. Store writes happen under mu so persisted
	// state follows the same order as in-memory state.
	mu  sync.Mutex
	env *Envelope
	gen uint64

	flight singleflight.Group
	// workers counts callers whose refresh has not finished yet, including
	// callers that stopped waiting.
	workers sync.WaitGroup
}

// ErrIdentityMismatch is wrapped into the refresh error when the server
// answers a refresh with a token for another account.
var ErrIdentityMismatch = errors.New("refreshed token belongs to another account")

func NewController(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:        b,
		store:          NewMemoryStore(),
		logger:         logging.NewNopLogger(),
		now:            time.Now,
		skew:           DefaultRefreshSkew,
		maxAge:         DefaultMaxAge,
		backendTTL:     DefaultBackendTTL,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "session")
	return c
}

// Login authenticates and replaces any existing envelope.
func (c *Controller) Login(ctx context.Context, email, password string) (Envelope, error) {
	res, err := c.backend.Authenticate(ctx, email, password)
	if err != nil {
		return Envelope{}, err
	}

	now := c.now()
	env := Envelope{
		AccessToken: res.AccessToken,
		Identity:    res.Identity,
		ExpiresAt:   c.expiryOf(res, now),
		CreatedAt:   now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.env = &env
	if err := c.store.Save(ctx, env); err != nil {
		c.logger.Warn(ctx, "session not persisted", "error", err)
	}

	c.logger.Info(ctx, "logged in", "user_id", env.Identity.ID)
	return env, nil
}

// Restore loads a persisted envelope, if any. An envelope past its maximum
// age is cleared instead.
func (c *Controller) Restore(ctx context.Context) (Envelope, bool, error) {
	env, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNoSession) {
			return Envelope{}, false, nil
		}
		return Envelope{}, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if env.Expired(c.now(), c.maxAge) {
		return Envelope{}, false, c.store.Clear(ctx)
	}

	c.gen++
	c.env = &env
	return env, true, nil
}

// Current returns a snapshot of the envelope without refreshing.
func (c *Controller) Current() (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.env == nil {
		return Envelope{}, false
	}
	return *c.env, true
}

// Token returns a usable access token, refreshing first when the token is
// within the refresh skew of its expiry.
func (c *Controller) Token(ctx context.Context) (string, error) {
	env, gen, err := c.active(ctx)
	if err != nil {
		return "", err
	}

	if env.NeedsRefresh(c.now(), c.skew) {
		env, err = c.refresh(ctx, gen)
		if err != nil {
			return "", err
		}
	}
	return env.AccessToken, nil
}

// Refresh exchanges the current token for a new one regardless of its expiry.
func (c *Controller) Refresh(ctx context.Context) (Envelope, error) {
	_, gen, err := c.active(ctx)
	if err != nil {
		return Envelope{}, err
	}
	return c.refresh(ctx, gen)
}

// Logout discards the envelope. Tokens are stateless, so the server is not
// contacted.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.env = nil
	return c.store.Clear(ctx)
}

func (c *Controller) active(ctx context.Context) (Envelope, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.env == nil {
		return Envelope{}, 0, common.ErrNoSession
	}
	if c.env.Err != nil {
		return Envelope{}, 0, c.env.Err
	}
	if c.env.Expired(c.now(), c.maxAge) {
		c.gen++
		c.env = nil
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn(ctx, "expired session not cleared", "error", err)
		}
		return Envelope{}, 0, common.ErrSessionExpired
	}
	return *c.env, c.gen, nil
}

// Wait blocks until every refresh started so far has finished and been
// applied. Call it after the last Token or Refresh call and before closing
// the store.
func (c *Controller) Wait() {
	c.workers.Wait()
}

// refresh joins or starts the single in-flight refresh for generation gen.
func (c *Controller) refresh(ctx context.Context, gen uint64) (Envelope, error) {
	c.workers.Add(1)
	ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.doRefresh(rctx, gen)
	})

	select {
	case r := <-ch:
		c.workers.Done()
		if r.Err != nil {
			return Envelope{}, r.Err
		}
		return r.Val.(Envelope), nil
	case <-ctx.Done():
		go func() {
			<-ch
			c.workers.Done()
		}()
		return Envelope{}, ctx.Err()
	}
}

func (c *Controller) doRefresh(ctx context.Context, gen uint64) (Envelope, error) {
	c.mu.Lock()
	if c.env == nil || c.gen != gen {
		c.mu.Unlock()
		return Envelope{}, common.ErrNoSession
	}
	token := c.env.AccessToken
	c.mu.Unlock()

	res, err := c.backend.Refresh(ctx, token)

	c.mu.Lock()
	defer c.mu.Unlock()

	// logged out or logged in again while the call was in flight
	if c.env == nil || c.gen != gen {
		return Envelope{}, common.ErrNoSession
	}

	if err == nil && res.ID != "" && res.ID != c.env.Identity.ID {
		err = ErrIdentityMismatch
	}
	if err != nil {
		failed := *c.env
		failed.Err = common.ErrRefreshFailed
		c.env = &failed
		if cerr := c.store.Clear(ctx); cerr != nil {
			c.logger.Warn(ctx, "failed session not cleared", "error", cerr)
		}
		c.logger.Warn(ctx, "refresh failed", "user_id", failed.Identity.ID, "error", err)
		return Envelope{}, fmt.Errorf("%w: %w", common.ErrRefreshFailed, err)
	}

	next := *c.env
	next.AccessToken = res.AccessToken
	if res.ID != "" {
		next.Identity = res.Identity
	}
	next.ExpiresAt = c.expiryOf(res, c.now())
	c.env = &next
	if err := c.store.Save(ctx, next); err != nil {
		c.logger.Warn(ctx, "session not persisted", "error", err)
	}

	c.logger.Debug(ctx, "token refreshed", "user_id", next.Identity.ID)
	return next, nil
}

// expiryOf prefers the server-reported expiry.
func (c *Controller) expiryOf(res *client.AuthResult, now time.Time) time.Time {
	if !res.ExpiresAt.IsZero() {
		return res.ExpiresAt
	}
	return now.Add(c.backendTTL)
}
