package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tasklane/server/internal/auth"
	"github.com/tasklane/server/internal/config"
	"github.com/tasklane/server/internal/db"
	httphandler "github.com/tasklane/server/internal/http"
	"github.com/tasklane/server/internal/http/handlers"
	"github.com/tasklane/server/internal/mail"
	"github.com/tasklane/server/internal/repo"
)

func main() {
	// Env vars override .env values.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	logger.Info("connecting to database", zap.String("dsn", db.RedactDSN(cfg.DatabaseURL)))
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	userRepo := repo.NewUserRepo(database)
	tokenRepo := repo.NewTokenRepo(database)
	todoRepo := repo.NewTodoRepo(database)

	var notifier mail.Notifier
	switch cfg.MailDriver {
	case config.MailDriverSMTP:
		notifier = mail.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	default:
		notifier = mail.NewLogNotifier(logger)
	}

	otpManager := auth.NewOtpManager(userRepo, cfg.OTPSalt)
	issuer := auth.NewTokenIssuer(cfg.TokenSecret, tokenRepo, userRepo)
	authService := auth.NewService(userRepo, otpManager, issuer, notifier, logger)

	authHandler := handlers.NewAuthHandler(authService, cfg.OtpEcho)
	todoHandler := handlers.NewTodoHandler(todoRepo)

	router := httphandler.NewRouter(authHandler, todoHandler, issuer, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("mail_driver", cfg.MailDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
