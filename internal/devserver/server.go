// Package devserver is a small in-memory implementation of the hydration backend.
// It issues short-lived JWT access tokens so that expiry and refresh can be
// exercised locally and in tests.
package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/models"
	"golang.org/x/time/rate"
)

type Server struct {
	config      *config.DevServerConfig
	signingKey  []byte
	now         func() time.Time
	requestIDs  models.IDGenerator
	registry    *prometheus.Registry
	data        *memoryStore
	middlewares []echo.MiddlewareFunc
}

// RegisterHandlers adds the backend routes to the server, the common middlewares
// are applied to every route group.
func (s *Server) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	auth := server.Group("/api/auth")
	auth.Use(commonMiddlewares...)
	auth.POST("/register", s.PostRegister)
	auth.POST("/login", s.PostLogin)
	auth.POST("/refresh", s.PostRefresh)
	auth.POST("/logout", s.PostLogout)

	protected := append(slices.Clone(commonMiddlewares), s.RequireAccessToken)
	water := server.Group("/water", protected...)
	water.POST("/add", s.PostWater)
	water.GET("/daily", s.GetDailyWater)
	water.PUT("/:id", s.PutWater)
	water.DELETE("/:id", s.DeleteWater)

	reminder := server.Group("/reminder", protected...)
	reminder.POST("", s.PostReminder)
	reminder.GET("", s.GetReminder)
	reminder.PUT("/update", s.PutReminder)
	reminder.PUT("/pause", s.PutReminderPause)
	reminder.PUT("/toggle-sleep-mode", s.PutToggleSleepMode)

	user := server.Group("/user", protected...)
	user.GET("/profile", s.GetProfile)
	user.PUT("/profile", s.PutProfile)

	analytics := server.Group("/analytics", protected...)
	analytics.GET("/weekly", s.GetWeekly)
	analytics.GET("/monthly", s.GetMonthly)
	analytics.GET("/streak", s.GetStreak)
	analytics.GET("/hydration", s.GetHydrationScore)
	analytics.GET("/export", s.GetExport)
}

// Echo builds a ready to start echo server with the routes, metrics and the
// configured rate limits.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: s.requestID}),
		middleware.RemoveTrailingSlash(),
	)
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "devserver",
		Registerer: s.registry,
	}))
	if s.config.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(s.config.RateLimits.Rate),
					Burst:     s.config.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		))
	}
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: s.registry}))
	s.RegisterHandlers(e, s.middlewares...)
	return e
}

func (s *Server) requestID() string {
	id, err := s.requestIDs.ID()
	if err != nil {
		slog.Error("DEVSERVER", "message", "generating a request ID failed", "error", err)
		return ""
	}
	return id
}

// RevokeRefreshTokens invalidates every refresh token issued so far, the
// access tokens stay valid until they expire.
func (s *Server) RevokeRefreshTokens() {
	s.data.revokeAll()
}

type ServerOption func(*Server) error

func WithConfig(devConfig config.DevServerConfig) ServerOption {
	return func(s *Server) error {
		s.config = &devConfig
		if devConfig.SigningKey != "" {
			s.signingKey = []byte(devConfig.SigningKey)
		}
		return nil
	}
}

// WithClock replaces the time source used to issue and verify tokens.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) error {
		s.now = now
		return nil
	}
}

func WithRegistry(registry *prometheus.Registry) ServerOption {
	return func(s *Server) error {
		s.registry = registry
		return nil
	}
}

// WithMiddlewares sets the middlewares applied to every backend route.
func WithMiddlewares(middlewares ...echo.MiddlewareFunc) ServerOption {
	return func(s *Server) error {
		s.middlewares = middlewares
		return nil
	}
}

func NewServer(options ...ServerOption) (*Server, error) {
	s := Server{now: time.Now, requestIDs: models.NewULIDGenerator(), data: newMemoryStore()}
	for _, opt := range options {
		err := opt(&s)
		if err != nil {
			return &Server{}, err
		}
	}
	if s.config == nil {
		return &Server{}, fmt.Errorf("dev server config not provided")
	}
	if s.config.AccessTokenTTL <= 0 {
		return &Server{}, fmt.Errorf("the access token TTL must be positive, got %s", s.config.AccessTokenTTL)
	}
	if len(s.signingKey) == 0 {
		key, err := models.NewRandomGenerator(32).ID()
		if err != nil {
			return &Server{}, err
		}
		s.signingKey = []byte(key)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.middlewares == nil {
		s.middlewares = []echo.MiddlewareFunc{RequestLogger}
	}
	return &s, nil
}
