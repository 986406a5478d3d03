package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"tanrid/internal/auth"
	"tanrid/internal/config"
	"tanrid/internal/handler"
	"tanrid/internal/middleware"
)

// Deps groups what the routes need.
type Deps struct {
	AuthHandler *handler.AuthHandler
	JWTService  *auth.JWTService
	// Limiter guards the public auth routes; nil disables rate limiting.
	Limiter  middleware.Limiter
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Deps) {
	// RealIP keys the rate limiter, so forwarding headers are ignored unless a proxy is trusted.
	e.IPExtractor = echo.ExtractIPDirect()
	if cfg.TrustProxyHeaders {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	e.Use(echomw.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("64K"))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "TanRid API running"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var public []echo.MiddlewareFunc
	if deps.Limiter != nil {
		public = append(public, middleware.RateLimit(deps.Limiter, deps.Logger))
	}

	authGroup := e.Group("/auth")

	// Public routes
	authGroup.POST("/register", deps.AuthHandler.Register, public...)
	authGroup.POST("/login", deps.AuthHandler.Login, public...)
	authGroup.POST("/forgot", deps.AuthHandler.ForgotPassword, public...)
	authGroup.POST("/reset", deps.AuthHandler.ResetPassword, public...)

	// Secured routes (require JWT authentication)
	authGroup.GET("/me", deps.AuthHandler.Me, middleware.RequireAuth(deps.JWTService))
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if claims, ok := middleware.IdentityFrom(c); ok {
				fields = append(fields, zap.String("user_id", claims.UserID()))
			}
			if v.Status >= http.StatusInternalServerError {
				logger.Error("request", fields...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
