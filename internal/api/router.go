package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/medicore/clinic-api/internal/api/handler"
	"github.com/medicore/clinic-api/internal/api/middleware"
	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

// Dependencies carries everything the HTTP layer needs. Registerer and
// Gatherer default to the global Prometheus registry when nil; tests that
// build several routers pass a fresh prometheus.NewRegistry().
type Dependencies struct {
	AuthService    ports.AuthService
	AccountService ports.AccountService
	Tokens         ports.TokenVerifier
	Accounts       ports.AccountReader
	Health         map[string]handler.Pinger
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "clinic",
		Subsystem:  "http",
		Registerer: deps.Registerer,
		Skipper:    skipOperational,
	}))

	// --- Handlers ---
	gate := middleware.NewGate(deps.Tokens, deps.Accounts, deps.Log)
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.AccountService)
	accountHandler := handler.NewAccountHandler(deps.AccountService)
	patientHandler := handler.NewPatientHandler(deps.AccountService)
	healthHandler := handler.NewHealthHandler(deps.Health)

	api := e.Group("/api")

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, gate.Authenticated())
	auth.PATCH("/me", authHandler.UpdateProfile, gate.Authenticated())
	auth.PUT("/me/password", authHandler.ChangePassword, gate.Authenticated())

	// --- Administration (admin only) ---
	admin := gate.Allow(domain.RoleAdmin)
	api.GET("/accounts", accountHandler.List, admin)
	api.GET("/accounts/:id", accountHandler.Get, admin)
	api.PUT("/accounts/:id/deactivate", accountHandler.Deactivate, admin)
	api.PUT("/accounts/:id/activate", accountHandler.Activate, admin)

	// --- Clinical staff ---
	api.GET("/patients", patientHandler.List, gate.Allow(domain.RoleAdmin, domain.RoleDoctor))

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func skipOperational(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}

// requestLogger feeds Echo's request logger into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper:      skipOperational,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error()
			} else if v.Status >= 400 {
				evt = log.Warn()
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
