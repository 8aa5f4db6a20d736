package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasks-api/configs"
	v1 "tasks-api/internal/api/v1"
	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/cache"
	"tasks-api/internal/config"
	"tasks-api/internal/middleware"
	"tasks-api/internal/repository"
	myws "tasks-api/internal/websocket"
	"tasks-api/pkg/database"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		logger.ErrorLogger.Error("Application stopped", zap.Error(err))
		logger.SyncLoggers()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := configs.LoadConfig()

	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		return fmt.Errorf("init loggers: %w", err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	db, err := database.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.SystemLogger.Info("Database connected", zap.String("driver", cfg.DBDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repository.CreateTableIfNotExists(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	redisClient, err := database.ConnectRedis(cfg)
	if err != nil {
		// The cache is optional; run without it.
		logger.ErrorLogger.Error("Redis unavailable, task cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.SystemLogger.Info("Redis connected")
	}

	hub := myws.NewHub()
	go hub.Run(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := config.NewDependencies(repository.NewStore(db), cache.New(redisClient), hub, reg, cfg.LoginDelay)
	app := newApp(cfg, deps)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.SystemLogger.Info("Shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// newApp builds the fiber app with the middleware chain and v1 routes.
func newApp(cfg configs.Config, deps *config.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "tasks-api",
		ErrorHandler: response.ErrorHandler,
	})

	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: 1 * time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return response.Fail(c, fiber.StatusTooManyRequests, "Too many requests - please slow down")
			},
		}))
	}

	v1.RegisterRoutes(app, deps)
	return app
}
