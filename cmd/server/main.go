package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/meetapp/internal/api"
	"github.com/example/meetapp/internal/config"
	"github.com/example/meetapp/internal/guard"
	"github.com/example/meetapp/internal/ledger"
	"github.com/example/meetapp/internal/mail"
	"github.com/example/meetapp/internal/queue"
	"github.com/example/meetapp/internal/store"
	"github.com/example/meetapp/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis (notification queue)
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	notifyQueue := queue.New(redisStore.Client(), logger)
	schedGuard := guard.New(cfg.ConflictWindow)
	subLedger := ledger.New(pgStore, schedGuard, notifyQueue, cfg.NotifyMaxAttempts, logger)

	// Notification delivery pipeline
	var mailer mail.Mailer
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, logger)
	} else {
		logger.Warn("SMTP_ADDR not set, mails will be logged instead of sent")
		mailer = mail.NewLog(logger)
	}

	policy := worker.RetryPolicy{
		MaxAttempts: cfg.NotifyMaxAttempts,
		BaseDelay:   cfg.NotifyBaseDelay,
		MaxDelay:    cfg.NotifyMaxDelay,
	}
	notifier := worker.NewNotifier(mailer, notifyQueue, pgStore, policy, logger)
	pool := worker.NewPool(cfg.NumWorkers, notifier, logger)
	dispatcher := worker.NewDispatcher(notifyQueue, pool, pgStore, logger)

	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	pool.Start(ctx)
	go dispatcher.Start(dispatcherCtx)

	router := api.NewRouter(pgStore, schedGuard, subLedger, notifyQueue, cfg.JWTSecret)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Stop the dispatcher first so nothing new reaches the pool, then close
	// the pool and drain the jobs the workers still hold. Jobs in the pool
	// were already claimed off the queue and would be lost otherwise.
	stopDispatcher()
	<-dispatcher.Done()
	pool.Stop()

	logger.Info("server stopped")
}
