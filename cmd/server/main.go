package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	accounts "github.com/eanavi/go-accounts"
	"github.com/eanavi/go-accounts/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := accounts.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx := context.Background()

	client, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)
	logger.Info("database connection successful")

	users := accounts.NewUsersRepository(client.Database(cfg.DatabaseName)).WithLogger(logger)
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	tokens := accounts.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTExpiresIn, "go-accounts", logger)
	mailer := accounts.NewSMTPMailer(cfg).WithLogger(logger)

	auth := accounts.NewAuthController(cfg, users, tokens, mailer).WithLogger(logger)
	usersCtrl := accounts.NewUsersController(users).WithLogger(logger)
	gate := accounts.NewSessionGate(tokens, users).WithLogger(logger)

	app := fiber.New(fiber.Config{
		AppName:      "go-accounts",
		BodyLimit:    10 * 1024,
		ErrorHandler: accounts.NewErrorHandler(cfg, logger),
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use("/api", limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Hour,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "fail",
				"message": "Too many requests from this IP, please try again in an hour!",
			})
		},
	}))
	if cfg.IsDevelopment() {
		app.Use(fiberlogger.New())
	}

	accounts.RegisterRoutes(app, auth, usersCtrl, gate)

	app.Use(accounts.NotFoundHandler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// newLogger builds the slog-backed logger: text in development, JSON
// in production.
func newLogger(cfg *accounts.Config) *slogLogger {
	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &slogLogger{l: slog.New(handler)}
}

// slogLogger adapts slog to the accounts.Logger interface.
type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
