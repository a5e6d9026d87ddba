package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/deliverydz/dispatch-api/docs"
	"github.com/deliverydz/dispatch-api/internal/api/handler"
	"github.com/deliverydz/dispatch-api/internal/api/middleware"
	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs from the rest of the
// process.
type Dependencies struct {
	Auth     ports.AuthService
	Orders   ports.OrderService
	Delivery ports.DeliveryService
	Tokens   ports.TokenVerifier
	Log      zerolog.Logger

	// Registerer and Gatherer back the HTTP metrics and /metrics. Nil means
	// the default Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Readiness lists the dependencies probed by /health/ready.
	Readiness map[string]handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "dispatch_http",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	orderHandler := handler.NewOrderHandler(deps.Orders)
	deliveryHandler := handler.NewDeliveryHandler(deps.Delivery)

	// --- Auth routes ---
	e.POST("/login", authHandler.Login)

	// --- Customer routes ---
	customer := e.Group("/api")
	customer.POST("/submit-order", orderHandler.Submit)
	customer.GET("/orders/:phone", orderHandler.ListByPhone)

	// --- Agent routes ---
	delivery := e.Group("/delivery", middleware.Auth(deps.Tokens), middleware.RBAC(domain.RoleAgent))
	delivery.GET("/orders", deliveryHandler.ListOrders)
	delivery.POST("/orders/:id/assign", deliveryHandler.Assign)
	delivery.POST("/orders/:id/status", deliveryHandler.UpdateStatus)
	delivery.GET("/agents", deliveryHandler.ListAgents)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
