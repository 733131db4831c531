package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/gate"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	dashboarddomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
	dashboardservice "github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/service"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability"
	obsmiddleware "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	obsmetrics "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/metrics"
	obstracing "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/tracing"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	loginPath     = "/login"
	logoutPath    = "/logout"
	dashboardPath = "/dashboard"

	shutdownTimeout = 10 * time.Second
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", obsmetrics.Handler())

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.String("addr", cfg.HTTPAddr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	registry     *session.Registry
	cookies      *session.Cookies
	dashboard    dashboarddomain.Service
	flashes      *dashboardservice.Flashes
	settings     *config.DashboardHolder
	loginLimiter *ratelimit.LoginLimiter
	mutations    *ratelimit.MutationGuard
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Registry     *session.Registry
	Cookies      *session.Cookies
	Dashboard    dashboarddomain.Service
	Flashes      *dashboardservice.Flashes
	Settings     *config.DashboardHolder
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	Mutations    *ratelimit.MutationGuard `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) (*Server, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          log.Named("http"),
		registry:     p.Registry,
		cookies:      p.Cookies,
		dashboard:    p.Dashboard,
		flashes:      p.Flashes,
		settings:     p.Settings,
		loginLimiter: p.LoginLimiter,
		mutations:    p.Mutations,
		obsMetrics:   p.ObsMetrics,
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	svc.engine.SetHTMLTemplate(pages)

	svc.registerAuthRoutes()
	svc.registerDashboardRoutes()
	svc.registerAdminAPIRoutes()
	svc.registerFallback()

	return svc, nil
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) gateOptions(json bool) gate.Options {
	return gate.Options{
		PendingWait:  s.cfg.Session.GatePendingWait,
		LoginPath:    loginPath,
		JSON:         json,
		RequireAdmin: s.cfg.Session.RequireAdminClaim,
	}
}

func (s *Server) registerAuthRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, dashboardPath)
	})
	s.engine.GET(loginPath, s.LoginPage)
	s.engine.POST(loginPath, s.LoginRateLimit(), s.Login)
	s.engine.POST(logoutPath, s.Logout)
}

func (s *Server) registerDashboardRoutes() {
	ui := s.engine.Group(dashboardPath)
	ui.Use(gate.Middleware(s.registry, s.gateOptions(false)))

	ui.GET("", s.UsersPage)
	ui.GET("/users", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, dashboardPath)
	})
	ui.GET("/users/new", s.NewUserPage)
	ui.POST("/users", s.CreateUserForm)
	ui.GET("/users/:id/edit", s.EditUserPage)
	ui.POST("/users/:id", s.UpdateUserForm)
	ui.GET("/users/:id/delete", s.DeleteUserPage)
	ui.POST("/users/:id/delete", s.DeleteUserForm)
	ui.GET("/users/:id/subscription", s.SubscriptionPage)
}

func (s *Server) registerAdminAPIRoutes() {
	api := s.engine.Group("/admin/api")
	api.Use(gate.Middleware(s.registry, s.gateOptions(true)))

	api.GET("/session", s.CurrentSession)

	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.GetUser)
	api.PUT("/users/:id", s.UpdateUser)
	api.DELETE("/users/:id", s.DeleteUser)
	api.GET("/users/:id/subscription", s.GetUserSubscription)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
