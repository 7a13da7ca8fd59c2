package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/aistaff/pkg/usecase/agent"
	"github.com/m-mizutani/aistaff/pkg/usecase/auth"
	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/aistaff/pkg/usecase/chat"
	"github.com/m-mizutani/aistaff/pkg/usecase/content"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

const shutdownTimeout = 10 * time.Second

// UseCases bundles the application services exposed over HTTP
type UseCases struct {
	Auth     *auth.UseCase
	Business *business.UseCase
	Agent    *agent.UseCase
	Chat     *chat.UseCase
	Content  *content.UseCase
}

// Server is the JSON HTTP API
type Server struct {
	echo           *echo.Echo
	uc             *UseCases
	metrics        *metrics.Metrics
	allowedOrigins []string
	now            func() time.Time
}

// Option is a functional option for Server
type Option func(*Server)

// WithMetrics exposes m on /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAllowedOrigins sets the CORS origins. Default is any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithClock sets the time source of the health endpoint
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates the HTTP API server
func New(uc *UseCases, opts ...Option) *Server {
	s := &Server{
		echo:           echo.New(),
		uc:             uc,
		allowedOrigins: []string{"*"},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handleError

	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.GET("/me", s.me, s.authenticate)

	biz := api.Group("/business", s.authenticate)
	biz.POST("/create", s.createBusiness)
	biz.GET("/all", s.listBusinesses)
	biz.GET("/:id", s.getBusiness)
	biz.PUT("/:id/edit", s.updateBusiness)
	biz.DELETE("/:id", s.deleteBusiness)

	ag := api.Group("/agent", s.authenticate)
	ag.POST("/create", s.createAgent)
	ag.GET("/by-business/:businessId", s.listAgents)
	ag.GET("/:id", s.getAgent)
	ag.DELETE("/:id", s.deleteAgent)
	ag.POST("/:id/update-memory", s.refreshAgentMemory)
	ag.POST("/:id/chat", s.chat)
	ag.GET("/:id/messages", s.listMessages)
	ag.POST("/:id/content/create", s.generateContent)
	ag.GET("/:id/content/all", s.listContents)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("starting HTTP server", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", addr))

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logging.From(ctx).Info("shutting down HTTP server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shut down HTTP server")
		}
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}
