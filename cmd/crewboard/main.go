package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"

	"crewboard/internal/server"
	"crewboard/internal/storage"
	"crewboard/internal/util"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("CREWBOARD_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("CREWBOARD_DB_PATH", "data/crewboard.db"), "Path to sqlite database file")
	staticFlag := flag.String("static", util.EnvOrDefault("CREWBOARD_STATIC_DIR", "web/dist"), "Directory with built frontend")
	flag.Parse()

	sessionTTL := util.EnvOrDefaultDuration("CREWBOARD_SESSION_TTL", 14*24*time.Hour)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := storage.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if err := bootstrapWorker(store, logger); err != nil {
		logger.Error("bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := server.New(store, logger, *staticFlag, sessionTTL)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := store.PurgeExpiredSessions(ctx)
		if err != nil {
			logger.Error("session purge failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			logger.Info("purged expired sessions", slog.Int64("count", n))
		}
	}); err != nil {
		logger.Error("unable to schedule session purge", slog.String("error", err.Error()))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// bootstrapWorker creates the first account from the environment when
// the worker table is empty. Without it a fresh database has no one
// who could log in.
func bootstrapWorker(store *storage.Store, logger *slog.Logger) error {
	username := os.Getenv("CREWBOARD_BOOTSTRAP_USER")
	password := os.Getenv("CREWBOARD_BOOTSTRAP_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := store.CountWorkers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	worker, err := store.CreateWorker(ctx, storage.WorkerInput{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}
	logger.Info("bootstrap worker created", slog.String("username", worker.Username))
	return nil
}
