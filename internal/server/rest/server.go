// Package rest exposes the account and session API over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is the business layer the handlers call into.
type UserService interface {
	Register(ctx context.Context, name, email, plain string) (*models.User, error)
	Authenticate(ctx context.Context, email, plain string) (*services.Session, error)
	Profile(ctx context.Context, id string) (auth.Identity, error)
	Refresh(ctx context.Context, id string) (*services.Session, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	Lookup(ctx context.Context, key users.LookupKey) (*models.User, error)
}

// Guard is satisfied by guard.AccessGuard and guard.AdminGuard.
type Guard interface {
	Check(ctx context.Context, header string) (context.Context, auth.Identity, error)
}

type Server struct {
	address         string
	logger          logging.Logger
	users           UserService
	access          Guard
	admin           Guard
	readTimeout     time.Duration
	shutdownTimeout time.Duration
	router          *gin.Engine
}

type Option func(*Server)

func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

func NewServer(address string, l logging.Logger, us UserService, access, admin Guard, opts ...Option) *Server {
	s := &Server{
		address:         address,
		logger:          l.With("module", "rest_server"),
		users:           us,
		access:          access,
		admin:           admin,
		readTimeout:     10 * time.Second,
		shutdownTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	a := r.Group("/auth")
	a.POST("", s.authenticate)
	a.GET("/profile", requireGuard(s.access), s.profile)
	a.POST("/refresh", requireGuard(s.access), s.refresh)

	u := r.Group("/user")
	u.POST("", s.register)
	u.PUT("/password", requireGuard(s.access), s.changePassword)
	u.GET("/lookup", requireGuard(s.admin), s.lookup)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
