package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"tanrid/docs"
	"tanrid/internal/auth"
	"tanrid/internal/cache"
	"tanrid/internal/config"
	"tanrid/internal/handler"
	"tanrid/internal/logging"
	"tanrid/internal/metrics"
	"tanrid/internal/middleware"
	"tanrid/internal/notify"
	"tanrid/internal/repository"
	"tanrid/internal/router"
	"tanrid/internal/service"
)

// @title TanRid Account API
// @version 1.0
// @description Account registration, login, password recovery and profile lookup for TanRid customers.
// @host localhost:4000
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; register, login and /auth/me will answer 500 until it is configured")
	}

	users, err := repository.Open(cfg, afero.NewOsFs())
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	limiter, cacheClient := newLimiter(cfg, logger)
	if cacheClient != nil {
		defer cacheClient.Close()
	}

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	resetTokens := auth.NewResetTokenService(users)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	notifier := notify.NewEmailNotifier(notify.EmailConfig{
		SMTPHost:  cfg.SMTPHost,
		SMTPPort:  cfg.SMTPPort,
		SMTPUser:  cfg.SMTPUser,
		SMTPPass:  cfg.SMTPPass,
		FromEmail: cfg.EmailFrom,
		ResetURL:  cfg.ResetURL,
	}, logger)

	authService := service.NewAuthService(users, jwtService, resetTokens, hasher, notifier, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Deps{
		AuthHandler: authHandler,
		JWTService:  jwtService,
		Limiter:     limiter,
		Gatherer:    reg,
		Logger:      logger,
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("storage", cfg.StorageDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

// newLimiter prefers Redis when REDIS_ADDR answers and falls back to an in-process limiter.
func newLimiter(cfg *config.Config, logger *zap.Logger) (middleware.Limiter, *cache.Client) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if cfg.RedisAddr != "" {
		client := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := client.Ping(ctx)
		if err == nil {
			return middleware.NewRedisLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow), client
		}
		logger.Warn("redis unavailable, using in-memory rate limiter", zap.Error(err))
		_ = client.Close()
	}
	return middleware.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = fmt.Sprintf("localhost:%d", cfg.ServerPort)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
