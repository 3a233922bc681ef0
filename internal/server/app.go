// Package server wires configuration, storage, the auth core and the REST
// surface together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/guard"
	"github.com/dmitrijs2005/folio/internal/server/password"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folio/internal/server/rest"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/gin-gonic/gin"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

// NewApp builds the application with JSON logs on stdout and gin in release
// mode. With an empty DatabaseDSN accounts are kept in memory and lost on exit.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	gin.SetMode(gin.ReleaseMode)
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	tokens, err := auth.NewManager([]byte(c.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("token manager init error: %w", err)
	}

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	if c.DatabaseDSN != "" {
		db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
	} else {
		logger.Warn(ctx, "no database configured, using in-memory storage")
		rm = repomanager.NewMemoryRepositoryManager(nil)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, password.New(), tokens, c.AccessTokenValidityDuration, logger)

	srv := rest.NewServer(c.EndpointAddrHTTP, logger, us,
		guard.NewAccessGuard(tokens),
		guard.NewAdminGuard(tokens, rm.Users(db), c.AdminEmail),
		rest.WithReadTimeout(c.ReadTimeout),
		rest.WithShutdownTimeout(c.ShutdownTimeout),
	)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer closeDB(app.db)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
