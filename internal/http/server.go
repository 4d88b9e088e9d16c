// Package http provides the HTTP server, router and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/scrilab/artale-auth/internal/auth/http"
	"github.com/scrilab/artale-auth/internal/config"
	licenseHTTP "github.com/scrilab/artale-auth/internal/license/http"
	"github.com/scrilab/artale-auth/internal/metrics"
	"github.com/scrilab/artale-auth/internal/ratelimit"
)

// ReadinessCheck pings one backing store.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Policies are the IP guard quotas applied per route group.
type Policies struct {
	Login       ratelimit.Policy
	Validate    ratelimit.Policy
	Maintenance ratelimit.Policy
}

// PoliciesFromConfig builds the route policies from configuration.
// A non-positive quota or window falls back to the route default; a zero
// quota would otherwise block every client on its first request.
func PoliciesFromConfig(cfg *config.Config) Policies {
	return Policies{
		Login: policyOrDefault(
			"login", cfg.RateLimitLoginMaxRequests, cfg.RateLimitLoginWindow, 5, 5*time.Minute),
		Validate: policyOrDefault(
			"validate", cfg.RateLimitValidateMaxRequests, cfg.RateLimitValidateWindow, 60, time.Minute),
		Maintenance: policyOrDefault(
			"maintenance", cfg.RateLimitMaintenanceMaxRequests, cfg.RateLimitMaintenanceWindow, 5, 5*time.Minute),
	}
}

func policyOrDefault(
	name string,
	maxRequests int,
	window time.Duration,
	defaultMax int,
	defaultWindow time.Duration,
) ratelimit.Policy {
	if maxRequests <= 0 {
		maxRequests = defaultMax
	}
	if window <= 0 {
		window = defaultWindow
	}
	return ratelimit.Policy{Name: name, MaxRequests: maxRequests, Window: window}
}

// RouterDeps are the handlers and collaborators the router mounts.
type RouterDeps struct {
	AuthHandler     *authHTTP.AuthHandler
	LicenseHandler  *licenseHTTP.LicenseHandler
	Guard           authHTTP.Guard
	AdminVerifier   authHTTP.AdminKeyVerifier
	MetricsProvider *metrics.Provider
}

// Server is the public HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
	checks []ReadinessCheck
}

// NewServer creates the server. Routes are mounted by SetupRouter.
func NewServer(checks []ReadinessCheck, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		checks: checks,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter mounts middleware and routes. ctx bounds the background cleanup
// of the ops limiter.
func (s *Server) SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger)
	if corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	policies := PoliciesFromConfig(cfg)

	auth := router.Group("/auth")
	{
		auth.POST("/login",
			authHTTP.GuardMiddleware(deps.Guard, policies.Login, s.logger),
			deps.AuthHandler.LoginHandler,
		)
		auth.POST("/logout", deps.AuthHandler.LogoutHandler)
		auth.POST("/validate",
			authHTTP.GuardMiddleware(deps.Guard, policies.Validate, s.logger),
			deps.AuthHandler.ValidateHandler,
		)
	}

	opsLimiter := authHTTP.OpsRateLimitMiddleware(
		ctx,
		cfg.OpsRateLimitRequestsPerSec,
		cfg.OpsRateLimitBurst,
		s.logger,
	)
	router.GET("/session-stats", opsLimiter, deps.AuthHandler.SessionStatsHandler)
	router.POST("/maintenance/sweep-sessions",
		opsLimiter,
		authHTTP.GuardMiddleware(deps.Guard, policies.Maintenance, s.logger),
		deps.AuthHandler.SweepSessionsHandler,
	)

	if deps.LicenseHandler != nil {
		licenses := router.Group("/v1/licenses")
		licenses.Use(authHTTP.AdminAuthMiddleware(deps.AdminVerifier, cfg.AdminAPIKeyHash, s.logger))
		{
			licenses.POST("", deps.LicenseHandler.UpsertHandler)
			licenses.GET("", deps.LicenseHandler.ListHandler)
			licenses.GET("/:digest", deps.LicenseHandler.GetHandler)
			licenses.POST("/:digest/deactivate", deps.LicenseHandler.DeactivateHandler)
			licenses.POST("/:digest/reactivate", deps.LicenseHandler.ReactivateHandler)
		}
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
