package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goContacts/internal/auth"
	"github.com/MrEthical07/goContacts/internal/contacts"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Route ids used as rate limit policy names.
const (
	RouteSignup        = "auth.signup"
	RouteLogin         = "auth.login"
	RouteRefresh       = "auth.refresh"
	RouteConfirm       = "auth.confirm"
	RouteRequestEmail  = "auth.request_email"
	RouteLogout        = "auth.logout"
	RouteMe            = "users.me"
	RouteAvatar        = "users.avatar"
	RouteContactCreate = "contacts.create"
	RouteContactList   = "contacts.list"
	RouteContactRead   = "contacts.read"
	RouteContactUpdate = "contacts.update"
	RouteContactDelete = "contacts.delete"
	RouteContactSearch = "contacts.search"
	RouteBirthdays     = "contacts.birthdays"
)

// Options tune the HTTP surface.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	AvatarMaxBytes int64
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the services behind the routes. Auth, Contacts and Limiter are
// required.
type Deps struct {
	Auth     *auth.Service
	Contacts *contacts.Service
	Limiter  middleware.Admitter
	Metrics  http.Handler
	Health   map[string]HealthCheck
	Logger   *zap.Logger
}

type Server struct {
	echo     *echo.Echo
	opts     Options
	auth     *auth.Service
	contacts *contacts.Service
	limiter  middleware.Admitter
	health   map[string]HealthCheck
	logger   *zap.Logger
}

func New(opts Options, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Contacts == nil || deps.Limiter == nil {
		return nil, errors.New("httpapi: auth, contacts and limiter are required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.AvatarMaxBytes <= 0 {
		opts.AvatarMaxBytes = 2 << 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		echo:     echo.New(),
		opts:     opts,
		auth:     deps.Auth,
		contacts: deps.Contacts,
		limiter:  deps.Limiter,
		health:   deps.Health,
		logger:   logger.Named("http"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.handleHTTPError
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(s.requestLogger())
	e.Use(echomw.ContextTimeout(opts.RequestTimeout))
	e.Use(middleware.ClientIP())

	e.GET("/healthz", s.handleHealth)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}
	s.registerRoutes(e.Group("/api"))
	return s, nil
}

func (s *Server) registerRoutes(api *echo.Group) {
	public := func(route string) echo.MiddlewareFunc {
		return middleware.RateLimit(s.limiter, route)
	}
	protected := func(route string) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{middleware.RateLimit(s.limiter, route), middleware.RequireAuth(s.auth)}
	}

	a := api.Group("/auth")
	a.POST("/signup", s.handleSignup, public(RouteSignup))
	a.POST("/register", s.handleSignup, public(RouteSignup))
	a.POST("/login", s.handleLogin, public(RouteLogin))
	a.POST("/refresh", s.handleRefresh, public(RouteRefresh))
	a.POST("/confirm/:token", s.handleConfirm, public(RouteConfirm))
	a.GET("/confirm/:token", s.handleConfirm, public(RouteConfirm))
	a.POST("/request_email", s.handleRequestEmail, public(RouteRequestEmail))
	a.POST("/logout", s.handleLogout, protected(RouteLogout)...)

	u := api.Group("/users")
	u.GET("/me", s.handleMe, protected(RouteMe)...)
	u.PATCH("/avatar", s.handleAvatar, protected(RouteAvatar)...)

	c := api.Group("/contacts")
	c.POST("", s.handleCreateContact, protected(RouteContactCreate)...)
	c.GET("", s.handleListContacts, protected(RouteContactList)...)
	c.GET("/search", s.handleSearchContacts, protected(RouteContactSearch)...)
	c.GET("/birthdays", s.handleBirthdays, protected(RouteBirthdays)...)
	c.GET("/:id", s.handleGetContact, protected(RouteContactRead)...)
	c.PUT("/:id", s.handleUpdateContact, protected(RouteContactUpdate)...)
	c.DELETE("/:id", s.handleDeleteContact, protected(RouteContactDelete)...)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Info("request", fields...)
			return nil
		},
	})
}

// Handler returns the root handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	status := map[string]string{}
	healthy := true
	for name, check := range s.health {
		if err := check(c.Request().Context()); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": status})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "checks": status})
}
