package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dmitrijs2005/folio/internal/client/client"
	"github.com/dmitrijs2005/folio/internal/client/config"
	"github.com/dmitrijs2005/folio/internal/client/session"
	"github.com/dmitrijs2005/folio/internal/client/validator"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
)

// API is the server surface the CLI uses directly.
type API interface {
	Register(ctx context.Context, name, email, password string) error
	Profile(ctx context.Context, token string) (client.Identity, error)
	ChangePassword(ctx context.Context, token, current, next string) error
}

// Session is implemented by session.Controller.
type Session interface {
	Login(ctx context.Context, email, password string) (session.Envelope, error)
	Restore(ctx context.Context) (session.Envelope, bool, error)
	Current() (session.Envelope, bool)
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (session.Envelope, error)
	Logout(ctx context.Context) error
	Wait()
}

type App struct {
	config    *config.Config
	api       API
	session   Session
	validator *validator.Validator
	logger    logging.Logger
	reader    *bufio.Reader

	// out is shared with the background validator
	outMu sync.Mutex
	out   io.Writer

	db *sql.DB
}

// NewApp wires the CLI against the configured server and session database.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	db, err := session.OpenSQLite(ctx, c.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	ctl := session.NewController(api,
		session.WithStore(session.NewSQLiteStore(db, session.WithPassphrase(c.SessionKey))),
		session.WithRefreshSkew(c.RefreshSkew),
		session.WithMaxAge(c.SessionMaxAge),
		session.WithBackendTTL(c.BackendTokenTTL),
		session.WithRefreshTimeout(c.RequestTimeout),
		session.WithLogger(logger),
	)

	a := newApp(c, api, ctl, logger, os.Stdin, os.Stdout)
	a.db = db
	return a, nil
}

func newApp(c *config.Config, api API, s Session, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:    c,
		api:       api,
		session:   s,
		validator: validator.New(s, api, logger),
		logger:    logger,
		reader:    bufio.NewReader(in),
		out:       out,
	}
}

// Run restores the previous session, starts the background validator and
// enters the REPL. It returns when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	// the store must outlive the validator and any refresh it started
	defer func() {
		cancel()
		wg.Wait()
		a.session.Wait()
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	a.restore(ctx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.validator.Run(ctx, a.config.ValidateInterval, func(st validator.Status) {
			a.handleStatus(ctx, st)
		})
	}()

	a.println("folio CLI (type 'help' for commands)")
	runREPL(ctx, a, a.reader)
	return nil
}

func (a *App) restore(ctx context.Context) {
	env, ok, err := a.session.Restore(ctx)
	if err != nil {
		a.logger.Warn(ctx, "session not restored", "error", err)
		return
	}
	if ok {
		a.println("Resumed session for " + env.Identity.Email)
	}
}

// handleStatus turns an invalid validation result into a forced logout.
func (a *App) handleStatus(ctx context.Context, st validator.Status) {
	if st.IsValid {
		if st.Err != nil {
			a.logger.Warn(ctx, "session check inconclusive", "error", st.Err)
		}
		return
	}
	a.forceLogout(ctx, st.Err)
}

func (a *App) forceLogout(ctx context.Context, cause error) {
	if _, ok := a.session.Current(); !ok {
		return
	}
	if err := a.session.Logout(ctx); err != nil {
		a.logger.Warn(ctx, "logout failed", "error", err)
	}
	a.logger.Info(ctx, "session ended", "cause", cause)
	a.println("Session expired, please log in again.")
}

// endsSession reports whether err means the user has to log in again.
func endsSession(err error) bool {
	return errors.Is(err, common.ErrUnauthenticated)
}

func (a *App) isLoggedIn() bool {
	env, ok := a.session.Current()
	return ok && env.Err == nil
}

func (a *App) prompt() string {
	env, ok := a.session.Current()
	if !ok || env.Err != nil {
		return "not logged in"
	}
	return env.Identity.Email
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}
