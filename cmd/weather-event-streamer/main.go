package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/weather-event-streamer/internal/api/http"
	"github.com/i474232898/weather-event-streamer/internal/app"
	"github.com/i474232898/weather-event-streamer/internal/config"
	"github.com/i474232898/weather-event-streamer/internal/logging"
	"github.com/i474232898/weather-event-streamer/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	entry := logging.WithService(l, app.ServiceName)

	// Core service orchestrating source, secrets, publisher and run history.
	service, _, err := app.NewService(cfg, entry)
	if err != nil {
		entry.WithField("error", err).Fatal("failed to build pipeline")
	}

	// Scheduler that periodically runs the pipeline.
	sched := scheduler.New(service, scheduler.Options{
		Interval:     cfg.Schedule.Interval,
		RunOnStartup: cfg.Schedule.RunOnStartup,
		Singleton:    cfg.Schedule.Singleton,
		RunTimeout:   cfg.Schedule.RunTimeout,
	}, entry)
	if err := sched.Start(); err != nil {
		entry.WithField("error", err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	fapp := fiber.New(fiber.Config{
		AppName:               app.ServiceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// a manual run makes three upstream calls and one publish
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	fapp.Use(logger.New(logger.Config{Output: l.Writer()}))
	fapp.Use(recover.New())

	// Basic health endpoint
	fapp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": app.ServiceName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(fapp, service)

	go func() {
		entry.WithField("port", cfg.HTTP.Port).Info("status api listening")
		if err := fapp.Listen(":" + cfg.HTTP.Port); err != nil {
			entry.WithField("error", err).Warn("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	entry.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fapp.ShutdownWithContext(shutdownCtx); err != nil {
		entry.WithField("error", err).Error("error during shutdown")
	}
}
